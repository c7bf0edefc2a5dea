// Package ledger implements the three chain specializations of the backup
// store: file contents, access grants and listing snapshots.
package ledger

import (
	"time"

	"blockvault/block"
	"blockvault/jsonx"
)

// Record kinds owned by the specializations.
const (
	KindFile       = "file"
	KindCredential = "credential"
	KindGrant      = "grant"
	KindListing    = "listing"
)

// FileRecord is one stored file snapshot.
type FileRecord struct {
	Path     string    `json:"path"`
	Observed time.Time `json:"observed"`
	Content  []byte    `json:"content"`
	Owner    string    `json:"owner"`
}

// CredentialRecord registers a user with the digest of their secret. The
// secret itself is never stored.
type CredentialRecord struct {
	Username string `json:"username"`
	Digest   string `json:"digest"`
}

// GrantRecord shares read access to a path with another identity.
type GrantRecord struct {
	Path      string    `json:"path"`
	Granter   string    `json:"granter"`
	Grantee   string    `json:"grantee"`
	Timestamp time.Time `json:"timestamp"`
}

// FileInfo is one listing entry.
type FileInfo struct {
	Path     string    `json:"path"`
	Owner    string    `json:"owner"`
	Observed time.Time `json:"observed"`
}

// ListingRecord is one snapshot of the full file listing.
type ListingRecord struct {
	Files     []FileInfo `json:"files"`
	Timestamp time.Time  `json:"timestamp"`
}

func encodeRecord(kind string, v interface{}) (block.Record, error) {
	data, err := jsonx.Marshal(v)
	if err != nil {
		return block.Record{}, err
	}
	return block.Record{Kind: kind, Data: data}, nil
}

func decodeFile(rec block.Record) (FileRecord, bool) {
	if rec.Kind != KindFile {
		return FileRecord{}, false
	}
	var fr FileRecord
	if err := jsonx.Unmarshal(rec.Data, &fr); err != nil {
		return FileRecord{}, false
	}
	return fr, true
}

func decodeCredential(rec block.Record) (CredentialRecord, bool) {
	if rec.Kind != KindCredential {
		return CredentialRecord{}, false
	}
	var cr CredentialRecord
	if err := jsonx.Unmarshal(rec.Data, &cr); err != nil {
		return CredentialRecord{}, false
	}
	return cr, true
}

func decodeGrant(rec block.Record) (GrantRecord, bool) {
	if rec.Kind != KindGrant {
		return GrantRecord{}, false
	}
	var gr GrantRecord
	if err := jsonx.Unmarshal(rec.Data, &gr); err != nil {
		return GrantRecord{}, false
	}
	return gr, true
}

func decodeListing(rec block.Record) (ListingRecord, bool) {
	if rec.Kind != KindListing {
		return ListingRecord{}, false
	}
	var lr ListingRecord
	if err := jsonx.Unmarshal(rec.Data, &lr); err != nil {
		return ListingRecord{}, false
	}
	return lr, true
}
