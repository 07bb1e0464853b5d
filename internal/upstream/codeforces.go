package upstream

import (
    "context"
    "net/url"
    "strings"

    "github.com/kmatotek/WCPCLeaderboard/internal/models"
)

const codeforcesProvider = "codeforces"

// Codeforces reads user.info, one request per user.
type Codeforces struct {
    base string
    c    Doer
}

var _ Fetcher[models.CodeforcesEntry] = (*Codeforces)(nil)

func NewCodeforces(baseURL string, c Doer) *Codeforces {
    return &Codeforces{base: strings.TrimRight(baseURL, "/"), c: c}
}

type cfUser struct {
    Handle    string  `json:"handle"`
    Rating    *int    `json:"rating"`
    MaxRating *int    `json:"maxRating"`
    Rank      *string `json:"rank"`
    MaxRank   *string `json:"maxRank"`
}

type cfResponse struct {
    Status  string   `json:"status"`
    Comment string   `json:"comment"`
    Result  []cfUser `json:"result"`
}

// Fetch returns the user's current and best rating. Unrated users have no
// rating fields; they come back as 0 and "unrated".
func (c *Codeforces) Fetch(ctx context.Context, username string) (models.CodeforcesEntry, error) {
    u := c.base + "/api/user.info?handles=" + url.QueryEscape(username)
    var resp cfResponse
    if err := getJSON(ctx, c.c, u, &resp); err != nil {
        return models.CodeforcesEntry{}, &FetchError{Provider: codeforcesProvider, Username: username, Err: err}
    }
    if resp.Status != "OK" {
        return models.CodeforcesEntry{}, &FetchError{Provider: codeforcesProvider, Username: username,
            Err: malformed("status %q: %s", resp.Status, resp.Comment)}
    }
    if len(resp.Result) == 0 || resp.Result[0].Handle == "" {
        return models.CodeforcesEntry{}, &FetchError{Provider: codeforcesProvider, Username: username,
            Err: malformed("user.info returned no user")}
    }
    r := resp.Result[0]
    return models.CodeforcesEntry{
        Username:  r.Handle,
        Rating:    intOr(r.Rating, 0),
        MaxRating: intOr(r.MaxRating, 0),
        Rank:      strOr(r.Rank, "unrated"),
        MaxRank:   strOr(r.MaxRank, "unrated"),
    }, nil
}

func intOr(p *int, def int) int {
    if p == nil { return def }
    return *p
}

func strOr(p *string, def string) string {
    if p == nil || *p == "" { return def }
    return *p
}
