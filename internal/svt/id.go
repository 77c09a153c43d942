package svt

import (
	"encoding/binary"
	"strings"

	"github.com/google/uuid"

	"github.com/ppiankov/accord/internal/model"
	"github.com/ppiankov/accord/internal/weight"
)

// IDPrefix starts every SVT ID.
const IDPrefix = "SVT-"

// namespace scopes SVT name-based UUIDs.
var namespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("accord.svt"))

// ID derives the SVT ID from the submission content. Equal submissions
// yield equal IDs.
func ID(sub model.Submission) string {
	buf := weight.CanonicalBytes(sub)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(sub.Message)))
	buf = append(buf, sub.Message...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(sub.FeatureIndex))
	buf = binary.BigEndian.AppendUint16(buf, sub.EnergySignature)
	return IDPrefix + uuid.NewSHA1(namespace, buf).String()
}

// ValidID reports whether s looks like an SVT ID.
func ValidID(s string) bool {
	rest, ok := strings.CutPrefix(s, IDPrefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}
