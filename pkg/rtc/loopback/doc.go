// Package loopback is an in-process rtc.Engine.
//
// Clients created from engines that share a Network see each other when they
// join the same channel: publishing a track raises OnUserPublished on every
// other member, leaving raises OnUserLeft. No media flows; tracks only record
// which surface they are playing into. This makes the engine suitable for
// tests and for running the web UI without an external service.
//
// Each client delivers its callbacks on a single dispatcher goroutine, in the
// order the network produced them.
package loopback
