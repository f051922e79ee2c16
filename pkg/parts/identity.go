package parts

import (
	"fmt"
	"math"
	"strings"

	"github.com/baleframe/tally/pkg/catalog"
	"github.com/baleframe/tally/pkg/classify"
	"github.com/baleframe/tally/pkg/model"
)

// Part identities are opaque keys distinguishing physically-distinct,
// separately-listed stock pieces. Two elements with the same identity are
// fungible for ordering and labeling.
//
// Identity derivation has three explicit paths, composed by the
// aggregator:
//   1. straw-bale materials key on category alone (geometry collapses),
//   2. elements with a semantic hint key on hint + material + geometry,
//   3. elements without a hint key on a tag-derived bucket plus a
//      material-specific discriminator, to avoid over-fragmenting
//      near-identical ad-hoc pieces.

// StrawIdentity keys a straw-bale part on material and category only.
func StrawIdentity(materialID string, cat model.StrawCategory) string {
	return strings.Join([]string{"straw", materialID, string(cat)}, "|")
}

// IdentityWithHint keys a hinted part on its semantic type, material and
// full geometry identity.
func IdentityWithHint(info *model.PartInfo, materialID, shapeKey string) string {
	return strings.Join([]string{"part", info.Type, info.Subtype, materialID, shapeKey}, "|")
}

// AutoIdentity is the result of the no-hint path.
type AutoIdentity struct {
	Identity    string
	Type        string // tag-derived semantic type, "misc" when unmatched
	Description string // custom tag label, when one exists in the bucket's category
}

// IdentityWithoutHint buckets an unhinted part by its first mapped tag
// and a material-specific discriminator: sheet thickness, dimensional
// cross-section, or the volume-material thickness heuristic. Pieces cut
// from the same stock merge; genuinely different stock never does.
func IdentityWithoutHint(tags []model.Tag, mat *catalog.Material, shape classify.Shape, m Metrics) AutoIdentity {
	bucket := "misc"
	autoType := "misc"
	description := ""
	if mapping, ok := model.MatchAutoType(tags); ok {
		bucket = mapping.Tag
		autoType = mapping.Type
		description = model.CustomDescription(tags, mapping.DescriptionCategory)
	}

	materialID := ""
	if mat != nil {
		materialID = mat.ID
	}
	disc := discriminator(mat, shape, m)
	return AutoIdentity{
		Identity:    strings.Join([]string{"auto", bucket, materialID, disc}, "|"),
		Type:        autoType,
		Description: description,
	}
}

// discriminator picks the stock-distinguishing component of an auto
// identity for the given material kind.
func discriminator(mat *catalog.Material, shape classify.Shape, m Metrics) string {
	if mat == nil {
		return ""
	}
	switch mat.Kind {
	case catalog.Sheet:
		if m.Thickness != nil {
			return fmt.Sprintf("t%g", math.Round(*m.Thickness))
		}
		return fmt.Sprintf("t%g", math.Round(shape.Dims[0]))
	case catalog.Dimensional:
		if m.CrossSection != nil {
			return m.CrossSection.String()
		}
		// No matching stock: fall back to the rounded cross dims so
		// unmatched pieces of different section still separate.
		return fmt.Sprintf("%gx%g", math.Round(shape.Dims[0]), math.Round(shape.Dims[1]))
	case catalog.Volume:
		return fmt.Sprintf("t%g", math.Round(shape.Dims[0]))
	default:
		return ""
	}
}

// ContainerIdentity keys a hinted container. Containers have no boundary
// mesh, so the discriminator is their own bounding-box dims.
func ContainerIdentity(info *model.PartInfo, dims [3]float64) string {
	key := fmt.Sprintf("bounds:%.1fx%.1fx%.1f", dims[0], dims[1], dims[2])
	return strings.Join([]string{"group", info.Type, info.Subtype, key}, "|")
}
