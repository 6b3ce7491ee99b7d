package testutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
)

// Account holds a complete key pair plus the derived hex address.
type Account struct {
	Address    string
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// FirstAccount returns the account derived from a fixed seed, so tests and
// demos can rely on one stable address across runs.
func FirstAccount() Account {
	seed := [32]byte{
		0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0,
		0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88,
		0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff, 0x00, 0x11,
		0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99,
	}

	privateKey := ed25519.NewKeyFromSeed(seed[:])
	publicKey := privateKey.Public().(ed25519.PublicKey)

	return Account{
		Address:    hex.EncodeToString(publicKey),
		PublicKey:  publicKey,
		PrivateKey: privateKey,
	}
}

// GenerateAccounts creates count accounts with fresh keypairs.
func GenerateAccounts(count int) []Account {
	accounts := make([]Account, count)

	for i := 0; i < count; i++ {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			panic("failed to generate keypair: " + err.Error())
		}
		accounts[i] = Account{
			Address:    hex.EncodeToString(pub),
			PublicKey:  pub,
			PrivateKey: priv,
		}
	}

	return accounts
}
