// Package password implements the credential primitives: Argon2id hashing and
// verification, the strength policy, and password-history bookkeeping.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The [Argon2] hasher supports transparent parameter upgrades: if the stored
// hash was produced with weaker parameters, [Argon2.NeedsUpgrade] returns true
// so the caller can re-hash on the next successful login.
//
// # Failure semantics
//
// Policy rejections are values ([Result] with a populated Errors list), never
// errors. A mismatching password is (false, nil) from [Argon2.Verify]. Only a
// malformed stored hash is an error — that is an infrastructure fault, not a
// wrong password.
//
// # What this package must NOT do
//
//   - Store or retrieve credentials — callers supply plaintext and receive hashes.
//   - Import any other authgate package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
