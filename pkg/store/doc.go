// Package store provides a versioned artifact store for textual snapshots,
// typically device configuration dumps, behind one uniform
// write/read/diff/list contract.
//
// # Backends
//
// Three interchangeable backends implement the contract:
//
//   - flat: one timestamped file per write, no history.
//   - git: a shell-driven backend that invokes the git executable as
//     subprocesses and treats its text output as the sole information channel.
//   - gogit: a library-driven backend that manipulates repository objects
//     (trees, commits, references) in-process via go-git, with no subprocess
//     spawning.
//
// The two version-control backends implement identical semantics: exactly one
// commit per logical write, no-op detection for byte-identical content,
// short-hash resolution by linear history scan, and newest-first history
// restricted to commits that touched the artifact.
//
// # Facade
//
// ArtifactStore selects a backend at construction time and owns it for its
// lifetime. If a version-control backend cannot be constructed or
// initialized, the store downgrades to flat storage and logs the reason; it
// never fails construction for that reason alone.
//
//	s, err := store.New(store.Options{
//		Root:     "/var/lib/confvault",
//		Backend:  store.KindGitLib,
//		OwnerTag: "core-rtr-01",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := s.WriteArtifact("core-rtr-01", dump, "192.0.2.10"); err != nil {
//		log.Fatal(err)
//	}
//
// # Simulation mode
//
// With Options.Simulate set, no filesystem or repository mutation occurs.
// Every intended write is recorded in a ledger, and DryRunSummary renders the
// accumulated operations with human-scaled sizes.
//
// # Concurrency
//
// The store is designed for sequential use by one caller per storage root.
// Writes perform a read-modify-write-commit sequence with no internal
// locking; concurrent writers against the same root are serialized (or
// rejected) only by the version-control engine's own index locking.
package store
