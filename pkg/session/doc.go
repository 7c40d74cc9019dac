/*
Package session implements per-session concurrency control.

Journeys read, merge and write their answer bag on every submission, and a
sub-journey shares its bag with the journey it was spawned from. The Manager
runs each request for a session under that session's lock, integrating an
in-process lock table with optional distributed locking across replicas.
*/
package session
