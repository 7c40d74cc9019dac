/*
Package ports defines the driven ports (interfaces) of the journey engine.

These interfaces decouple the engine from external implementations, allowing
journeys to run against various session backends, renderers and persistence
services.

# Key Interfaces

  - AnswerStore: Session scoped storage of answer bags and journey metadata.
  - SessionStore: Opens an AnswerStore per session and manages sessions.
  - DistributedLocker: Provides distributed locking for concurrent session access.
  - Renderer: Turns a domain.View into a response.
  - PropertyRegistrar: The final submission boundary.
  - AddressLookup, LocalAuthorities: Reference data for the address task.
*/
package ports
