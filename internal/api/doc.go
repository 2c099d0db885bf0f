// Package api provides the REST client for the ACTO chat backend.
//
// Endpoints:
//   - Auth: POST /auth/login, /auth/register, /auth/logout; GET/PUT /auth/profile
//   - Chats: GET /chats, POST /chats, POST /chats/{id}/read
//   - Messages: GET/POST /chats/{id}/messages
//   - Users: GET /users/search?q=
//
// Every request carries the stored bearer credential when one exists. A 401
// response clears the credential and fires the session-expired hook before
// the error is returned to the caller.
package api
