package places

// searchTextRequest is the Places text search request body.
type searchTextRequest struct {
	TextQuery    string        `json:"textQuery"`
	LocationBias *locationBias `json:"locationBias,omitempty"`
}

type locationBias struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// searchTextResponse is the Places text search envelope.
type searchTextResponse struct {
	Places []struct {
		ID string `json:"id"`
	} `json:"places"`
}

// Details is a Places place entity, limited to consumed fields. It is
// the cached payload for the venue photos cache.
type Details struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text         string `json:"text"`
		LanguageCode string `json:"languageCode"`
	} `json:"displayName"`
	FormattedAddress string   `json:"formattedAddress,omitempty"`
	Rating           float64  `json:"rating,omitempty"`
	UserRatingCount  int      `json:"userRatingCount,omitempty"`
	WebsiteURI       string   `json:"websiteUri,omitempty"`
	Types            []string `json:"types,omitempty"`
	Photos           []Photo  `json:"photos,omitempty"`
}

// Photo is one place photo reference.
type Photo struct {
	Name               string              `json:"name"`
	WidthPx            int                 `json:"widthPx"`
	HeightPx           int                 `json:"heightPx"`
	AuthorAttributions []AuthorAttribution `json:"authorAttributions,omitempty"`
}

// AuthorAttribution credits the photo uploader.
type AuthorAttribution struct {
	DisplayName string `json:"displayName"`
	URI         string `json:"uri"`
	PhotoURI    string `json:"photoUri"`
}
