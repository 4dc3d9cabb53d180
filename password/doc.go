// Package password holds the password policy validator and the argon2id
// verifier used by chatgate.
//
// # Policy
//
// [Validate] applies the rules in a fixed order and reports the first one that
// fails: minimum length, then an uppercase letter, a lowercase letter, a digit,
// and a character from [SpecialCharacters].
//
// # Output format
//
// Verifiers are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports verifiers produced with weaker parameters so the
// caller can re-hash after the next successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve verifiers. Callers supply plaintext and receive hashes.
//   - Import any other chatgate package.
//   - Log plaintext passwords.
package password
