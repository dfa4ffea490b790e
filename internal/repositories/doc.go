// Package repositories implements SQLite and OS keyring persistence for the formcheck client.
//
// Key Implementations:
//   - [TokenRepository] : access token per API host in SQLite (services.TokenStore)
//   - [KeyringTokenRepository] : access token per API host in the OS credential store (services.TokenStore)
//   - [CookieRepository] : cookies per API host, the refresh cookie in practice (cookies.Backend)
//   - [UploadRepository] : upload history with status tracking (models.Repository[*models.Upload])
//   - [HistoryRecorder] : adapter recording finished uploads (tasks.ResultRecorder)
//
// Upload history supports soft deletes via deleted_at timestamps and excludes deleted records from queries by default.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
