// Package secrets provides the cryptographic primitives and the secret model
// for secretsync.
//
// # Encryption Architecture
//
// secretsync uses a two-layer envelope per secret field:
//
//  1. The field is AES-256-CBC encrypted with a passphrase (OpenSSL
//     "Salted__" format, key and IV from EVP_BytesToKey)
//  2. Outbound, the AES ciphertext is encrypted again with the backend's RSA
//     public key, so only the backend can unwrap it
//  3. Inbound, the backend returns AES ciphertext under a per-session key that
//     it delivered RSA-encrypted for this session's public key
//
// The backend only ever stores and forwards ciphertext.
//
// # Key Management
//
// Session key pairs are generated per authentication exchange and never
// reused. RSA keys are 2048 bits by default; 1024 is the smallest modulus
// accepted. Long payloads are encrypted in OAEP-sized chunks.
//
// # Failure Semantics
//
// Decryption helpers never panic or return errors for bad input. They return
// an empty value (and false where a flag is available) so a secret encrypted
// for another device or session is a key mismatch rather than a crash.
// Callers decide whether that is fatal.
//
// # Reconciliation
//
// Merge combines the existing secrets of an environment with an intended
// change set. Keys are normalized to upper case and at most one secret per
// key survives.
package secrets
