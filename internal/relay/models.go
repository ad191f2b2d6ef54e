package relay

import (
	"crypto/ed25519"
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	id "ledgergate/pkg/domain"
)

// domainSeparator binds signatures to this deployment's relay contract.
// Changing it invalidates every previously signed message.
const domainSeparator = "ledgergate/relay/v1"

// Request is one signed meta-transaction. The investor signs the digest
// of {destination, data, nonce, senderInvestor, blockLimit} off-line; the
// relay verifies and forwards on their behalf.
type Request struct {
	Destination    id.Address
	Data           []byte
	Nonce          uint64
	SenderInvestor id.InvestorID
	BlockLimit     uint64
	Signature      []byte
}

// Digest computes the signed digest: SHA3-256 over the domain separator
// and the length-prefixed request fields.
func (r Request) Digest() []byte {
	h := sha3.New256()
	writeField(h.Write, []byte(domainSeparator))
	writeField(h.Write, []byte(r.Destination.String()))
	writeField(h.Write, r.Data)
	writeUint64(h.Write, r.Nonce)
	writeField(h.Write, []byte(r.SenderInvestor.String()))
	writeUint64(h.Write, r.BlockLimit)
	return h.Sum(nil)
}

// Verify checks the request signature against an investor's registered
// public key.
func (r Request) Verify(key ed25519.PublicKey) bool {
	if len(r.Signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(key, r.Digest(), r.Signature)
}

// Sign produces the request signature. Used by clients and tests.
func (r Request) Sign(key ed25519.PrivateKey) []byte {
	return ed25519.Sign(key, r.Digest())
}

func writeField(w func([]byte) (int, error), b []byte) {
	writeUint64(w, uint64(len(b)))
	w(b)
}

func writeUint64(w func([]byte) (int, error), v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	w(buf[:])
}
