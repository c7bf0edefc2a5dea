package block

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestDeterministic(t *testing.T) {
	ts := time.Unix(1700000000, 12345)
	records := []Record{{Kind: "file", Data: json.RawMessage(`{"path":"a.txt"}`)}}

	a := New(3, 42, "abc", records, ts)
	b := New(3, 42, "abc", records, ts)

	require.Equal(t, a.Digest(), b.Digest())
	assert.Len(t, a.Digest(), 64)
}

func TestDigestCoversEveryField(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	records := []Record{{Kind: "file", Data: json.RawMessage(`{"path":"a.txt"}`)}}
	base := New(3, 42, "abc", records, ts)

	variants := []*Block{
		New(4, 42, "abc", records, ts),
		New(3, 43, "abc", records, ts),
		New(3, 42, "abd", records, ts),
		New(3, 42, "abc", nil, ts),
		New(3, 42, "abc", records, ts.Add(time.Nanosecond)),
		New(3, 42, "abc", []Record{{Kind: "grant", Data: json.RawMessage(`{"path":"a.txt"}`)}}, ts),
	}
	for i, v := range variants {
		assert.NotEqual(t, base.Digest(), v.Digest(), "variant %d should change the digest", i)
	}
}

func TestSumHex(t *testing.T) {
	// sha256("") is a well-known vector.
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", SumHex(nil))
	assert.Equal(t, SumHex([]byte("secret")), SumHex([]byte("secret")))
	assert.NotEqual(t, SumHex([]byte("secret")), SumHex([]byte("Secret")))
}
