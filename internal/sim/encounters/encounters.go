// Package encounters is the catalog-backed collaborator the overworld map
// consumes: the faction universe and the encounter payloads placed on
// blocks. Catalogs are JSON files under the config directory, digested with
// sha256 so clients can verify they hold the same content as the server.
package encounters

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"warplots.gg/internal/sim/overworld"
)

// FactionDef is one entry of factions.json. Exactly one entry carries
// player=true; the rest are the rival universe, in file order.
type FactionDef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Player bool   `json:"player,omitempty"`
}

// Factions is the fixed faction universe for a campaign.
type Factions struct {
	Player overworld.Faction
	Rivals []overworld.Faction
	Defs   map[overworld.Faction]FactionDef
	Digest string
}

// ArchetypeDef is one encounter archetype file under configs/encounters/.
type ArchetypeDef struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	BaseWeight  float64 `json:"base_weight"`
	MinStrength int     `json:"min_strength"`
	MaxStrength int     `json:"max_strength"`
}

// Deck holds the loaded archetypes and deals encounter payloads. It
// implements overworld.EncounterSource.
type Deck struct {
	ByID   map[string]ArchetypeDef
	order  []string // archetype ids, sorted, for deterministic sampling
	Digest string
}

// Node is the concrete encounter payload stored inside a block. The map
// only touches Faction; everything else is read by the combat collaborator
// when the player engages the block.
type Node struct {
	Archetype string
	Title     string
	Faction   overworld.Faction
	Strength  int
	ForBlock  overworld.BlockID
	Tutorial  bool
}

func (n *Node) ControllingFaction() overworld.Faction     { return n.Faction }
func (n *Node) SetControllingFaction(f overworld.Faction) { n.Faction = f }

// Random deals a weighted-random archetype with a strength in the
// archetype's range, drawn from the caller's PRNG.
func (d *Deck) Random(block overworld.BlockID, rng *rand.Rand) overworld.EncounterNode {
	def := d.sample(rng)
	strength := def.MinStrength
	if def.MaxStrength > def.MinStrength {
		strength += rng.Intn(def.MaxStrength - def.MinStrength + 1)
	}
	return &Node{
		Archetype: def.ID,
		Title:     def.Title,
		Strength:  strength,
		ForBlock:  block,
	}
}

// Tutorial deals the fixed "defend home" encounter for the start block.
func (d *Deck) Tutorial(block overworld.BlockID) overworld.EncounterNode {
	return &Node{
		Archetype: "home_defense",
		Title:     "Defend the Home Block",
		Strength:  1,
		ForBlock:  block,
		Tutorial:  true,
	}
}

// sample picks an archetype by base weight over the sorted id order.
func (d *Deck) sample(rng *rand.Rand) ArchetypeDef {
	total := 0.0
	for _, id := range d.order {
		total += d.ByID[id].BaseWeight
	}
	roll := rng.Float64() * total
	for _, id := range d.order {
		roll -= d.ByID[id].BaseWeight
		if roll < 0 {
			return d.ByID[id]
		}
	}
	return d.ByID[d.order[len(d.order)-1]]
}

// Load reads factions.json and encounters/*.json from the config directory.
func Load(configDir string) (*Factions, *Deck, error) {
	f, err := loadFactions(filepath.Join(configDir, "factions.json"))
	if err != nil {
		return nil, nil, err
	}
	d, err := loadDeck(filepath.Join(configDir, "encounters"))
	if err != nil {
		return nil, nil, err
	}
	return f, d, nil
}

func loadFactions(path string) (*Factions, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var defs []FactionDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("factions.json: %w", err)
	}

	out := &Factions{
		Defs:   map[overworld.Faction]FactionDef{},
		Digest: sha256Hex(raw),
	}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("factions.json: empty id")
		}
		tag := overworld.Faction(d.ID)
		if _, dup := out.Defs[tag]; dup {
			return nil, fmt.Errorf("factions.json: duplicate id %s", d.ID)
		}
		out.Defs[tag] = d
		if d.Player {
			if out.Player != overworld.NoFaction {
				return nil, fmt.Errorf("factions.json: multiple player factions")
			}
			out.Player = tag
			continue
		}
		out.Rivals = append(out.Rivals, tag)
	}
	if out.Player == overworld.NoFaction {
		return nil, fmt.Errorf("factions.json: no player faction")
	}
	if len(out.Rivals) == 0 {
		return nil, fmt.Errorf("factions.json: no rival factions")
	}
	return out, nil
}

func loadDeck(dir string) (*Deck, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("encounters: no archetype files in %s", dir)
	}

	d := &Deck{ByID: map[string]ArchetypeDef{}}
	var concat bytes.Buffer
	for _, p := range files {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		concat.Write(b)
		concat.WriteByte('\n')

		var def ArchetypeDef
		if err := json.Unmarshal(b, &def); err != nil {
			return nil, fmt.Errorf("encounter %s: %w", filepath.Base(p), err)
		}
		if def.ID == "" {
			return nil, fmt.Errorf("encounter %s: missing id", filepath.Base(p))
		}
		if def.BaseWeight <= 0 {
			return nil, fmt.Errorf("encounter %s: base_weight must be positive", filepath.Base(p))
		}
		if def.MaxStrength < def.MinStrength {
			return nil, fmt.Errorf("encounter %s: strength range inverted", filepath.Base(p))
		}
		d.ByID[def.ID] = def
	}
	d.Digest = sha256Hex(concat.Bytes())

	for id := range d.ByID {
		d.order = append(d.order, id)
	}
	sort.Strings(d.order)
	return d, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
