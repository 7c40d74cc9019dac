/*
Package domain contains the core domain models of the journey engine.

It defines the values that flow between the engine, its adapters and the
hosting layer. This package is kept pure and free of external dependencies
like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - JourneyMetadata: Correlates a journey identifier with the answer bag it reads and writes.
  - JourneyData: The answer bag shared by a journey and its sub-journeys.
  - PageData: The raw values submitted for a single step.
  - Destination: Where a request goes after a step (another step or an external URL).
  - View: A structural representation of what the host should render.
*/
package domain
