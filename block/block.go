package block

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"time"
)

// GenesisPrevHash is the sentinel previous-hash value of the genesis block.
const GenesisPrevHash = "0"

// Record is one opaque payload entry sealed into a block. Kind names the
// record type owned by a ledger specialization; Data is its JSON encoding.
type Record struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Block is one immutable, hash-linked ledger entry. Fields are never
// modified after the block has been sealed and persisted.
type Block struct {
	Index     uint64    `json:"index"`     // Position in the chain, 0 for genesis
	Proof     uint64    `json:"proof"`     // Admission proof relative to the previous block
	PrevHash  string    `json:"prev_hash"` // Digest of the previous block, "0" for genesis
	Records   []Record  `json:"records"`   // Payload sealed at creation
	Timestamp time.Time `json:"timestamp"` // Creation time, informational
}

// New assembles a block over the given records.
func New(index, proof uint64, prevHash string, records []Record, ts time.Time) *Block {
	return &Block{
		Index:     index,
		Proof:     proof,
		PrevHash:  prevHash,
		Records:   records,
		Timestamp: ts,
	}
}

// Digest computes the block's canonical SHA-256 digest as a hex string.
// Two blocks with identical fields always produce identical digests.
func (b *Block) Digest() string {
	h := sha256.New()
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, b.Index)
	h.Write(buf)
	binary.BigEndian.PutUint64(buf, b.Proof)
	h.Write(buf)
	h.Write([]byte(b.PrevHash))
	binary.BigEndian.PutUint64(buf, uint64(b.Timestamp.UnixNano()))
	h.Write(buf)
	for _, r := range b.Records {
		h.Write([]byte(r.Kind))
		h.Write(r.Data)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SumHex is the digest function shared by block chaining, proof admission
// and credential hashing: SHA-256 rendered as lowercase hex.
func SumHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
