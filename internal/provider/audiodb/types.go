package audiodb

// artistResponse is the top-level response from TheAudioDB search endpoint.
type artistResponse struct {
	Artists []audioDBArtist `json:"artists"`
}

// audioDBArtist is a TheAudioDB artist entity, limited to the fields
// the catalog consumes.
type audioDBArtist struct {
	IDArtist    string `json:"idArtist"`
	Artist      string `json:"strArtist"`
	Genre       string `json:"strGenre"`
	Style       string `json:"strStyle"`
	BiographyEN string `json:"strBiographyEN"`
	FormedYear  string `json:"intFormedYear"`
	ArtistThumb string `json:"strArtistThumb"`
}
