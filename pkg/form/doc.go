// Package form binds raw submitted page data into typed form models and
// collects field validation messages.
package form
