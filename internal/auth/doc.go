// Package auth turns a device token into an authenticated session.
//
// Every Authenticate call generates a fresh RSA key pair, sends its public
// half to the backend's authenticateToken mutation and recovers the
// per-session AES key from the returned access token. The resulting Session
// is the only state remote operations need; nothing is cached between calls.
//
// The package also implements device login (addAuthCode followed by
// verifyAuthCode polling) and token revocation.
package auth
