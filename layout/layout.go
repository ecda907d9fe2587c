// Package layout declares the repository-layout contract from spec.md §3
// and §6: it is consumed, not implemented, by this module — a concrete
// layout (Maven2-style directory conventions, a flat blob namespace, ...)
// is supplied by the caller wiring a Connector together.
package layout

import "github.com/depotline/connector-basic/cmn/cos"

// MetadataLevel ranks a Metadata entity's position in the coordinate tree,
// used to order the level-barrier in a PUT batch (spec.md §4.6): version
// before artifact before group before root.
type MetadataLevel int

const (
	LevelVersion MetadataLevel = iota
	LevelArtifact
	LevelGroup
	LevelRoot
)

// Entity is either an Artifact or a Metadata coordinate (spec.md Glossary).
type Entity interface {
	entity()
}

// Artifact identifies a single file by Maven-style coordinates.
type Artifact struct {
	GroupID    string
	ArtifactID string
	Version    string
	Classifier string
	Extension  string
}

func (Artifact) entity() {}

// String renders the conventional groupId:artifactId:version:classifier:extension coordinate.
func (a Artifact) String() string {
	return a.GroupID + ":" + a.ArtifactID + ":" + a.Version + ":" + a.Classifier + ":" + a.Extension
}

// Metadata identifies a repository index node at a given coordinate level.
type Metadata struct {
	GroupID    string
	ArtifactID string
	Version    string
	Level      MetadataLevel
}

func (Metadata) entity() {}

// ChecksumLocation pairs an algorithm (named by AlgorithmName, resolved
// against the Layout's AlgorithmFactories()) with the relative URI of its
// sidecar file.
type ChecksumLocation struct {
	AlgorithmName string
	URI           string
}

// Location is a relative URI plus the checksum sidecar locations the
// layout advertises for it.
type Location struct {
	URI               string
	ChecksumLocations []ChecksumLocation
}

// Layout maps entities to URIs and enumerates the checksum algorithms a
// connector should compute and validate (spec.md §6).
type Layout interface {
	LocationOf(entity Entity, upload bool) (Location, error)
	ChecksumLocationsOf(entity Entity, upload bool, base Location) ([]ChecksumLocation, error)
	AlgorithmFactories() []cos.ChecksumAlgorithm
}
