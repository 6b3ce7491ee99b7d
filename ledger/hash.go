package ledger

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

func int64ToBytes(n int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	return b
}

func float64ToBytes(f float64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(f))
	return b
}

// TransactionDigest returns the deterministic hash of a transaction's signed
// fields. The signature itself is excluded, it is computed over this digest.
func TransactionDigest(tx *Transaction) [32]byte {
	h := sha256.New()
	h.Write([]byte(tx.ID))
	h.Write([]byte(tx.From))
	h.Write([]byte(tx.To))
	h.Write(float64ToBytes(tx.Amount))
	h.Write(float64ToBytes(tx.Fee))
	h.Write(int64ToBytes(tx.Timestamp))
	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return digest
}

// SignTransaction signs the transaction digest with the given key and stores
// the hex-encoded signature on the transaction.
func SignTransaction(tx *Transaction, privatekey ed25519.PrivateKey) string {
	digest := TransactionDigest(tx)
	sig := ed25519.Sign(privatekey, digest[:])
	tx.Signature = hex.EncodeToString(sig)
	return tx.Signature
}

// CalculateHash returns the hex hash of a block's identity fields: index,
// previous hash, timestamp, transactions and nonce. Miner, reward and
// difficulty do not participate, so the hash is stable across reward tweaks.
func CalculateHash(b *Block) string {
	h := sha256.New()
	h.Write(int64ToBytes(b.Index))
	h.Write([]byte(b.PreviousHash))
	h.Write(int64ToBytes(b.Timestamp))
	for i := range b.Transactions {
		digest := TransactionDigest(&b.Transactions[i])
		h.Write(digest[:])
	}
	h.Write(int64ToBytes(b.Nonce))
	return hex.EncodeToString(h.Sum(nil))
}

// HashMeetsDifficulty reports whether the hex hash carries the required number
// of leading zero characters.
func HashMeetsDifficulty(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if difficulty > len(hash) {
		return false
	}
	for i := 0; i < difficulty; i++ {
		if hash[i] != '0' {
			return false
		}
	}
	return true
}
