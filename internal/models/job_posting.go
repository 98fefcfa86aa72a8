package models

import (
	"encoding/json"
	"time"
)

const (
	// DefaultTierLabel is the tier assigned to every posting that has not
	// been through wage-level resolution yet. Sort order over WageTierNum
	// must never see an unset value, so both fields are populated at insert.
	DefaultTierLabel = "Lv 2"
	DefaultTierNum   = 2
)

// JobPosting is a record in the local jobs table. Postings are created by
// the synchronizer when copied from the source store and their tier fields
// are later refined by the repair driver. The pipeline never deletes them.
type JobPosting struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Company       string    `json:"company"`
	Location      string    `json:"location"`
	URL           string    `json:"url"`
	Salary        string    `json:"salary"`
	RoleName      string    `json:"role_name"`
	DatePosted    string    `json:"date_posted"`
	WageTierLabel string    `json:"wage_tier_label"`
	WageTierNum   int32     `json:"wage_tier_num"`
	SyncedAt      time.Time `json:"synced_at"`
}

func (p JobPosting) MarshalBinary() ([]byte, error) {
	return json.Marshal(p)
}

func (p *JobPosting) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, p)
}

// DedupKey is the composite key used by count-deficit reconciliation.
func (p JobPosting) DedupKey() string {
	return p.URL + "|" + p.RoleName
}

// ApplyDefaults normalizes a posting copied from the source store: sentinel
// "null" strings become empty, tier fields fall back to the default level
// and the synced-at stamp is set.
func (p *JobPosting) ApplyDefaults(now time.Time) {
	if p.DatePosted == "null" || p.DatePosted == "NULL" {
		p.DatePosted = ""
	}
	if p.WageTierLabel == "" || p.WageTierLabel == "null" {
		p.WageTierLabel = DefaultTierLabel
	}
	if p.WageTierNum < 1 || p.WageTierNum > 4 {
		p.WageTierNum = DefaultTierNum
	}
	p.SyncedAt = now
}
