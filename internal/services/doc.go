// Package services talks to the squat-form analysis API.
//
// # Clients
//
// [NewClients] builds two [Client] values sharing one token store, cookie jar and
// reissue coordinator: Default (10s) for ordinary calls and Upload (300s) for video
// transfers. Every request reads the access token from the [TokenStore] and sends it
// in the "access" header; the header is omitted when no token is stored or when the
// request sets NoAuth.
//
// # Retry once on 401
//
// A 401 on a request that has not been replayed yet triggers one POST /reissue with the
// refresh cookie. On success the new token is stored and the request is replayed once
// with it. A 401 on the replay is returned unchanged. When there is no refresh cookie or
// the reissue fails, the access token and refresh cookie are cleared, the [ExpiryHandler]
// runs and the call fails with [shared.ErrSessionExpired].
//
// Concurrent 401s that presented the same token share a single reissue call.
//
// # Errors
//
// Failed calls return [*APIError] classified as network, auth (401), validation (other
// 4xx, server message kept) or server (5xx, generic message). [UserMessage] and
// [UploadMessage] turn errors into the localized strings shown to users.
//
// # Services
//
//   - [AuthService] : login, register, logout, reissue
//   - [UploadService] : client-side video checks and multipart upload
//   - [IdentityResolver] : who the user is after a silent reissue
package services
