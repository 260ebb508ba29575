package digest_test

import (
	"testing"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/digest"
)

func Test_Render(t *testing.T) {
	type table struct {
		name string
		sum  []byte
		exp  string
	}

	tt := []table{
		{name: "padded", sum: []byte{0xab, 0xcd}, exp: "abcd"},
		{name: "single", sum: []byte{0x00, 0x0f, 0x10}, exp: "0f10"},
		{name: "empty", sum: nil, exp: ""},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			got := digest.Render(tst.sum)
			if got != tst.exp {
				t.Logf("Test %s:\tgot: %s", tst.name, got)
				t.Logf("Test %s:\texp: %s", tst.name, tst.exp)
				t.Fatalf("Test %s:\tShould render bytes without padding.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_HashDeterministic(t *testing.T) {
	type value struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	h1, err := digest.Hash(value{Name: "bill", Count: 1})
	if err != nil {
		t.Fatalf("Should be able to hash the value: %s", err)
	}

	h2, err := digest.Hash(value{Name: "bill", Count: 1})
	if err != nil {
		t.Fatalf("Should be able to hash the value: %s", err)
	}

	if h1 != h2 {
		t.Logf("got: %s", h1)
		t.Logf("exp: %s", h2)
		t.Fatalf("Should get the same hash for the same value.")
	}

	h3, err := digest.Hash(value{Name: "bill", Count: 2})
	if err != nil {
		t.Fatalf("Should be able to hash the value: %s", err)
	}

	if h1 == h3 {
		t.Fatalf("Should get a different hash for a different value.")
	}

	if l := len(h1); l < 64 || l > 128 {
		t.Fatalf("Should get a hash between 64 and 128 characters, got %d.", l)
	}
}

func Test_HashUnsupported(t *testing.T) {
	if _, err := digest.Hash(make(chan int)); err == nil {
		t.Fatalf("Should not be able to hash a channel.")
	}
}

func Test_ZeroHash(t *testing.T) {
	if len(digest.ZeroHash) != 64 {
		t.Fatalf("Should have 64 characters, got %d.", len(digest.ZeroHash))
	}

	for _, c := range digest.ZeroHash {
		if c != '0' {
			t.Fatalf("Should only contain zeros, got %q.", c)
		}
	}
}
