// Package password implements Argon2id password hashing and verification.
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters so the
// caller can re-hash after the next successful login.
//
// The package never stores passwords and never logs them.
package password
