// Package property declares the property registration journey: a landlord
// finds or enters an address, describes the property, its licensing and
// occupancy, then checks their answers and submits the registration.
//
// A Journey is built per request against that request's journey state. It
// holds no answers itself; every read goes through the state service.
package property
