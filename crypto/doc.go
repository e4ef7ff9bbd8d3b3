// Package crypto implements the long-term key material primitives for a
// zapnet node: X25519 identity key pairs, scoped secure wiping of secret
// bytes, explicit hex/binary key codecs, and on-disk identity persistence.
//
// The noise package consumes these primitives to run the authenticated
// handshake; everything else in the system identifies peers by the 32-byte
// X25519 public key held in a KeyPair.
//
// Example:
//
//	keys, err := crypto.GenerateKeyPair()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pub, _ := crypto.EncodeKey(keys.Public, crypto.FormatHex)
//	fmt.Println("Public key:", string(pub))
package crypto
