package models

// KeyRow is the dedup-key projection of one posting, the only data the
// synchronizer needs from the target side.
type KeyRow struct {
	ID       string
	URL      string
	RoleName string
}

func (k KeyRow) DedupKey() string {
	return k.URL + "|" + k.RoleName
}
