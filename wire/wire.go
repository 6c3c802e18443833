// Package wire defines the CBOR interchange formats of the code generator:
// typed programs handed over by a front end, and bundles of compiled units.
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Version is the format version written into every document.
const Version = 1

// cborEncMode uses canonical mode for deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}
