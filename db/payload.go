package db

import "github.com/uptrace/bun"

// Payload is an immutable blueprint string keyed by its content hash.
// The table is owned and written by the build catalogue; it is only read here.
type Payload struct {
	bun.BaseModel `bun:"table:Payloads,alias:p"`

	Hash        string `bun:"Hash,pk"`
	Encoded     string `bun:"Encoded"`
	GameVersion string `bun:"GameVersion"`
	Type        int    `bun:"Type"`
}
