package spotify

// tokenResponse is the client-credentials grant response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// searchResponse is the /v1/search artist envelope.
type searchResponse struct {
	Artists struct {
		Items []artistItem `json:"items"`
	} `json:"artists"`
}

// artistItem is one artist object from the Spotify Web API.
type artistItem struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Images       []imageItem `json:"images"`
	Genres       []string    `json:"genres"`
	Popularity   int         `json:"popularity"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

type imageItem struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}
