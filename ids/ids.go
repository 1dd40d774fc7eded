/*
 * nodeengine
 *
 * Package ids contains the stable identifiers used throughout the engine:
 * generational node identifiers, globally unique node UUIDs, declaration
 * identifiers and enum identifiers.
 */
package ids

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"devt.de/krotik/common/cryptutil"
)

/*
NodeId is a generational identifier into a NodeStore. Index addresses a slot
in the store's backing arena; Generation is bumped every time a slot is
reused so a stale NodeId captured before a delete can never alias the node
that was later inserted into the same slot.
*/
type NodeId struct {
	Index      uint32
	Generation uint32
}

/*
InvalidNodeId is the zero value; no node ever has this id.
*/
var InvalidNodeId = NodeId{}

/*
IsValid returns whether this id is not the zero value. It does not imply the
id resolves to a live node - use the store for that.
*/
func (id NodeId) IsValid() bool {
	return id != InvalidNodeId
}

func (id NodeId) String() string {
	return fmt.Sprintf("%d#%d", id.Index, id.Generation)
}

/*
ParseNodeId parses the "<index>#<generation>" form produced by String, used
to round-trip a cached NodeId through the wire/persistence layers.
*/
func ParseNodeId(s string) (NodeId, error) {
	var id NodeId
	var idx, gen uint32
	if _, err := fmt.Sscanf(s, "%d#%d", &idx, &gen); err != nil {
		return id, fmt.Errorf("invalid node id %q: %w", s, err)
	}
	id.Index = idx
	id.Generation = gen
	return id, nil
}

/*
MarshalJSON encodes a NodeId as its "<index>#<generation>" string form, the
representation the wire and persistence layers exchange it in.
*/
func (id NodeId) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

/*
UnmarshalJSON parses the "<index>#<generation>" string form.
*/
func (id *NodeId) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseNodeId(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

/*
NodeUuid uniquely identifies a node across the engine's entire lifetime,
independent of store slot reuse. Generated with cryptutil.GenerateUUID
(version 4, RFC 4122).
*/
type NodeUuid [16]byte

/*
NewNodeUuid generates a fresh random NodeUuid.
*/
func NewNodeUuid() NodeUuid {
	return NodeUuid(cryptutil.GenerateUUID())
}

func (u NodeUuid) String() string {
	return hex.EncodeToString(u[:])
}

/*
ParseNodeUuid parses the hex representation produced by String.
*/
func ParseNodeUuid(s string) (NodeUuid, error) {
	var u NodeUuid

	b, err := hex.DecodeString(s)
	if err != nil {
		return u, err
	}
	if len(b) != 16 {
		return u, fmt.Errorf("invalid uuid length: %d", len(b))
	}

	copy(u[:], b)

	return u, nil
}

/*
MarshalJSON encodes a NodeUuid as its hex string form.
*/
func (u NodeUuid) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

/*
UnmarshalJSON parses the hex string form produced by MarshalJSON.
*/
func (u *NodeUuid) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseNodeUuid(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

/*
DeclId names a node's role inside its parent's schema. A dotted form
("a.b.c") denotes a folder path: each "." separated segment is one folder
level, the final segment the leaf decl-id.
*/
type DeclId string

/*
EnumId names an enum type registered for use by Enum-valued parameters.
*/
type EnumId string
