package registry

import (
	"slices"
	"strings"
	"studiocheck/internal/availability"
	"studiocheck/lib/textutil"
)

// Resource describes a bookable resource and how to fetch it.
type Resource struct {
	ID          string
	Name        string
	URL         string
	StudioCount int
	Kind        availability.PayloadKind
	// SubID is the id the adapter itself knows the resource by (civic hall room id,
	// CREA studio id).
	SubID string
}

// CatalogEntry is the public view of a resource.
type CatalogEntry struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	StudioCount int                      `json:"studioCount"`
	Kind        availability.PayloadKind `json:"kind"`
}

const (
	buzzBaseURL      = "https://buzz-st.com"
	civicHallURL     = "https://k3.p-kashikan.jp/fukuoka-kyotenbunka/index.php"
	creaMerchantURL  = "https://coubic.com/rentalstudiocrea"
	suggestThreshold = 0.8
)

func buzz(id, name string, studios int) Resource {
	return Resource{
		ID:          id,
		Name:        name,
		URL:         buzzBaseURL + "/" + id,
		StudioCount: studios,
		Kind:        availability.PayloadTable,
		SubID:       id,
	}
}

func civicHallRoom(roomID, name string) Resource {
	return Resource{
		ID:          "civichall-" + roomID,
		Name:        "福岡市民会館 " + name,
		URL:         civicHallURL,
		StudioCount: 1,
		Kind:        availability.PayloadRange,
		SubID:       roomID,
	}
}

func creaStudio(id, name string) Resource {
	return Resource{
		ID:          id,
		Name:        name,
		URL:         creaMerchantURL,
		StudioCount: 1,
		Kind:        availability.PayloadPriced,
		SubID:       id,
	}
}

// resources is never mutated after init, it is only handed out by value.
var resources = []Resource{
	buzz("fukuokahonten", "BUZZ福岡本店", 12),
	buzz("fukuokatenjin", "BUZZ福岡天神", 6),
	buzz("fukuokatenjin2nd", "BUZZ福岡天神2nd", 4),
	buzz("fukuokahakata", "BUZZ福岡博多", 6),
	buzz("fukuokahakataekimae", "BUZZ福岡博多駅前", 6),
	civicHallRoom("rehearsal", "リハーサル室"),
	civicHallRoom("practice1", "練習室①"),
	civicHallRoom("practice3", "練習室③"),
	creaStudio("crea-daimyo", "CREA大名"),
	creaStudio("crea-plus", "CREA+"),
	creaStudio("crea-daimyo2", "CREA大名Ⅱ"),
	creaStudio("crea-music", "CREA music"),
}

var byID = func() map[string]Resource {
	index := make(map[string]Resource, len(resources))
	for _, r := range resources {
		if _, exists := index[r.ID]; exists {
			panic("duplicate resource id " + r.ID)
		}
		index[r.ID] = r
	}
	return index
}()

// Lookup finds a resource by id, surrounding whitespace is ignored.
func Lookup(id string) (Resource, bool) {
	r, ok := byID[strings.TrimSpace(id)]
	return r, ok
}

// All returns every resource in catalogue order.
func All() []Resource {
	return slices.Clone(resources)
}

// IDs returns every resource id in catalogue order.
func IDs() []string {
	ids := make([]string, len(resources))
	for i, r := range resources {
		ids[i] = r.ID
	}
	return ids
}

// OfKind returns the resources handled by one adapter kind.
func OfKind(kind availability.PayloadKind) []Resource {
	var out []Resource
	for _, r := range resources {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Catalog returns the public catalogue in registry order.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, len(resources))
	for i, r := range resources {
		out[i] = CatalogEntry{
			ID:          r.ID,
			Name:        r.Name,
			StudioCount: r.StudioCount,
			Kind:        r.Kind,
		}
	}
	return out
}

// Suggest returns the known id closest to an unknown one.
func Suggest(id string) (string, bool) {
	return textutil.ClosestMatch(id, IDs(), suggestThreshold)
}
