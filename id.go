package flowstream

import "github.com/xraph/flowstream/id"

// ID is the primary identifier type for all FlowStream entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
