package lastfm

// infoResponse is the artist.getinfo envelope.
type infoResponse struct {
	Artist artistInfo `json:"artist"`
}

// artistInfo is the Last.fm artist entity, limited to consumed fields.
type artistInfo struct {
	Name  string      `json:"name"`
	MBID  string      `json:"mbid"`
	URL   string      `json:"url"`
	Image []imageSpec `json:"image"`
	Tags  struct {
		Tag []tagSpec `json:"tag"`
	} `json:"tags"`
	Bio struct {
		Content string `json:"content"`
	} `json:"bio"`
}

type imageSpec struct {
	URL  string `json:"#text"`
	Size string `json:"size"`
}

type tagSpec struct {
	Name string `json:"name"`
}
