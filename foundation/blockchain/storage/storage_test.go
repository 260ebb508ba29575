package storage_test

import (
	"bytes"
	"testing"

	"github.com/ardanlabs/gossipchain/foundation/blockchain/peer"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/storage"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/storage/badger"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/storage/leveldb"
	"github.com/ardanlabs/gossipchain/foundation/blockchain/storage/memory"
	"github.com/google/uuid"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func backends(t *testing.T) map[string]storage.Storage {
	mem, err := memory.New()
	if err != nil {
		t.Fatalf("Should be able to open memory storage: %s", err)
	}

	ldb, err := leveldb.New(t.TempDir())
	if err != nil {
		t.Fatalf("Should be able to open leveldb storage: %s", err)
	}

	bdb, err := badger.New(t.TempDir())
	if err != nil {
		t.Fatalf("Should be able to open badger storage: %s", err)
	}

	strgs := map[string]storage.Storage{
		"memory":  mem,
		"leveldb": ldb,
		"badger":  bdb,
	}

	t.Cleanup(func() {
		for _, strg := range strgs {
			strg.Close()
		}
	})

	return strgs
}

func TestContract(t *testing.T) {
	t.Log("Given the need to read and write values with every backend.")
	{
		for name, strg := range backends(t) {
			f := func(t *testing.T) {
				key := []byte("key")
				value := []byte{0x00, 0xff, 'v', 0x10}

				if _, ok, err := strg.Get(key); err != nil || ok {
					t.Fatalf("\t%s\tTest %s:\tShould not find a missing key: ok[%v] err[%v]", failed, name, ok, err)
				}
				t.Logf("\t%s\tTest %s:\tShould not find a missing key.", success, name)

				if err := strg.Put(key, value); err != nil {
					t.Fatalf("\t%s\tTest %s:\tShould be able to put a value: %s", failed, name, err)
				}

				// Changing the caller's slice must not change what is stored.
				value[0] = 0x01

				got, ok, err := strg.Get(key)
				if err != nil || !ok {
					t.Fatalf("\t%s\tTest %s:\tShould find the key: ok[%v] err[%v]", failed, name, ok, err)
				}

				exp := []byte{0x00, 0xff, 'v', 0x10}
				if !bytes.Equal(got, exp) {
					t.Logf("\t%s\tTest %s:\tgot: %x", failed, name, got)
					t.Logf("\t%s\tTest %s:\texp: %x", failed, name, exp)
					t.Fatalf("\t%s\tTest %s:\tShould get back the exact bytes written.", failed, name)
				}
				t.Logf("\t%s\tTest %s:\tShould get back the exact bytes written.", success, name)

				if err := strg.Put(key, []byte("second")); err != nil {
					t.Fatalf("\t%s\tTest %s:\tShould be able to replace a value: %s", failed, name, err)
				}

				got, _, _ = strg.Get(key)
				if string(got) != "second" {
					t.Fatalf("\t%s\tTest %s:\tShould get the latest value, got %q.", failed, name, got)
				}
				t.Logf("\t%s\tTest %s:\tShould get the latest value.", success, name)

				for i := 0; i < 2; i++ {
					if err := strg.Delete(key); err != nil {
						t.Fatalf("\t%s\tTest %s:\tShould be able to delete %d times: %s", failed, name, i+1, err)
					}
				}
				t.Logf("\t%s\tTest %s:\tShould be able to delete twice.", success, name)

				if _, ok, err := strg.Get(key); err != nil || ok {
					t.Fatalf("\t%s\tTest %s:\tShould not find a deleted key: ok[%v] err[%v]", failed, name, ok, err)
				}
				t.Logf("\t%s\tTest %s:\tShould not find a deleted key.", success, name)
			}

			t.Run(name, f)
		}
	}
}

func TestPeerBook(t *testing.T) {
	t.Log("Given the need to remember known peers.")
	{
		for name, strg := range backends(t) {
			f := func(t *testing.T) {
				pb := storage.NewPeerBook(strg)

				p1 := peer.New(uuid.New(), "127.0.0.1:9080")
				p2 := peer.New(uuid.New(), "127.0.0.1:9081")

				for _, p := range []peer.Peer{p1, p2, p1} {
					if err := pb.Save(p); err != nil {
						t.Fatalf("\t%s\tTest %s:\tShould be able to save peer %s: %s", failed, name, p.ID, err)
					}
				}
				t.Logf("\t%s\tTest %s:\tShould be able to save peers.", success, name)

				peers, err := pb.Load()
				if err != nil {
					t.Fatalf("\t%s\tTest %s:\tShould be able to load peers: %s", failed, name, err)
				}

				if len(peers) != 2 || peers[0] != p1 || peers[1] != p2 {
					t.Logf("\t%s\tTest %s:\tgot: %v", failed, name, peers)
					t.Logf("\t%s\tTest %s:\texp: %v", failed, name, []peer.Peer{p1, p2})
					t.Fatalf("\t%s\tTest %s:\tShould load each peer once in order.", failed, name)
				}
				t.Logf("\t%s\tTest %s:\tShould load each peer once in order.", success, name)

				if err := pb.Remove(p1.ID); err != nil {
					t.Fatalf("\t%s\tTest %s:\tShould be able to remove a peer: %s", failed, name, err)
				}

				if err := pb.Remove(uuid.New()); err != nil {
					t.Fatalf("\t%s\tTest %s:\tShould be able to remove an unknown peer: %s", failed, name, err)
				}

				peers, err = pb.Load()
				if err != nil || len(peers) != 1 || peers[0] != p2 {
					t.Fatalf("\t%s\tTest %s:\tShould only have the second peer left: %v %v", failed, name, peers, err)
				}
				t.Logf("\t%s\tTest %s:\tShould only have the second peer left.", success, name)
			}

			t.Run(name, f)
		}
	}
}

func TestPeerBookRestartedPeer(t *testing.T) {
	t.Log("Given the need to remember a peer that restarted with a new id.")
	{
		for name, strg := range backends(t) {
			f := func(t *testing.T) {
				pb := storage.NewPeerBook(strg)

				before := peer.New(uuid.New(), "127.0.0.1:9080")
				other := peer.New(uuid.New(), "127.0.0.1:9081")
				after := peer.New(uuid.New(), "127.0.0.1:9080")

				for _, p := range []peer.Peer{before, other, after} {
					if err := pb.Save(p); err != nil {
						t.Fatalf("\t%s\tTest %s:\tShould be able to save peer %s: %s", failed, name, p.ID, err)
					}
				}

				peers, err := pb.Load()
				if err != nil {
					t.Fatalf("\t%s\tTest %s:\tShould be able to load peers: %s", failed, name, err)
				}

				if len(peers) != 2 || peers[0] != other || peers[1] != after {
					t.Logf("\t%s\tTest %s:\tgot: %v", failed, name, peers)
					t.Logf("\t%s\tTest %s:\texp: %v", failed, name, []peer.Peer{other, after})
					t.Fatalf("\t%s\tTest %s:\tShould replace the entry held under the old id.", failed, name)
				}
				t.Logf("\t%s\tTest %s:\tShould replace the entry held under the old id.", success, name)
			}

			t.Run(name, f)
		}
	}
}
