// Package password implements the slow salted hash used for stored credentials.
//
// # Output format
//
// New hashes are argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.Verify] also accepts bcrypt hashes ($2a$, $2b$, $2y$) so credentials
// imported from older stores keep working. [Argon2.NeedsUpgrade] reports true
// for them.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. The signup policy
// (confirmation match, minimum length messages) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other goLedger package.
//   - Log plaintext passwords.
package password
