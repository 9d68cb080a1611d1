// Package session holds per-browser state for the HTTP service.
//
// [Store] is an in-memory TTL cache of [models.Session] values. [Manager] issues and verifies the signed
// cookie that names a stored session, and [NewContext]/[FromContext] hand the resolved session to handlers.
//
// Nothing is persisted: a restart logs every user out.
package session
