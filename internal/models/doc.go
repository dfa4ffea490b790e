// Package models defines domain entities and persistence interfaces for the formcheck client.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): request and response bodies of the analysis service
//   - [User] : identity known after login or reissue
//   - [Credentials] : login body
//   - [RegisterRequest] : registration body
//   - [AnalysisResult] : score and feedback returned for an uploaded video
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Upload] : local history of analyzed videos
//
// Persistent entities implement the Model interface providing ID, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
