// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI mirrors the pages of the web client:
//  1. [LoadingView] : Session restore in progress; neither authenticated nor anonymous UI is shown
//  2. [LoginView] : Username and password
//  3. [RegisterView] : Username, password and real name
//  4. [UploadView] : Pick a video (authenticated only)
//  5. [UploadingView] : Real-time upload and analysis progress
//  6. [ResultView] : Score and feedback
//  7. [HistoryView] : Previous uploads
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// [App] wraps it so an expired session can throw the whole model away: the
// [Navigator] sends a redirect message and App replaces the current model with a
// fresh login model. Messages from commands started by the discarded model carry
// its generation and are ignored.
//
// Form views take text input, so only ctrl key bindings act there; contextual help is
// rendered with charmbracelet/bubbles/help.
package ui
