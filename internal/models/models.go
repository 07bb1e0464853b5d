package models

import (
    "bytes"
    "encoding/json"
    "fmt"
    "strings"
)

// CodeforcesEntry is one row of the Codeforces leaderboard.
type CodeforcesEntry struct {
    Username  string `json:"username"`
    Rating    int    `json:"rating"`
    MaxRating int    `json:"maxRating"`
    Rank      string `json:"rank"`
    MaxRank   string `json:"maxRank"`
}

// LeetCodeEntry is one row of the LeetCode leaderboard. ContestRanking and
// ContestTitle come from the most recent contest in the user's history.
type LeetCodeEntry struct {
    Username       string  `json:"username"`
    TotalSolved    int     `json:"totalSolved"`
    Ranking        Rank    `json:"ranking"`
    ContestRanking Rank    `json:"contestRanking"`
    ContestTitle   *string `json:"contestTitle"`
}

// CodeforcesFallback stands in for a failed user when the Codeforces board
// runs fail-soft.
func CodeforcesFallback(username string) CodeforcesEntry {
    return CodeforcesEntry{Username: username, Rank: "unrated", MaxRank: "unrated"}
}

// LeetCodeFallback is substituted for a user whose fetch failed.
func LeetCodeFallback(username string) LeetCodeEntry {
    return LeetCodeEntry{
        Username:       username,
        TotalSolved:    0,
        Ranking:        Unranked(),
        ContestRanking: Unranked(),
        ContestTitle:   nil,
    }
}

// ContestRank is the sort key of the contest view.
func (e LeetCodeEntry) ContestRank() Rank { return e.ContestRanking }

// unrankedText is how an unranked value travels in JSON.
const unrankedText = "N/A"

// Rank is either a non-negative position or Unranked. The zero value is
// Unranked.
type Rank struct {
    n      int64
    ranked bool
}

func Numeric(n int64) Rank {
    if n < 0 { n = 0 }
    return Rank{n: n, ranked: true}
}

func Unranked() Rank { return Rank{} }

func (r Rank) IsRanked() bool { return r.ranked }

// Less orders numeric ranks ascending, all of them before Unranked.
// Two Unranked values are equal.
func (r Rank) Less(o Rank) bool {
    switch {
    case r.ranked && o.ranked:
        return r.n < o.n
    case r.ranked:
        return true
    default:
        return false
    }
}

func (r Rank) String() string {
    if !r.ranked { return unrankedText }
    return fmt.Sprintf("%d", r.n)
}

func (r Rank) MarshalJSON() ([]byte, error) {
    if !r.ranked { return json.Marshal(unrankedText) }
    return json.Marshal(r.n)
}

func (r *Rank) UnmarshalJSON(b []byte) error {
    b = bytes.TrimSpace(b)
    if len(b) == 0 || bytes.Equal(b, []byte("null")) {
        *r = Unranked()
        return nil
    }
    if b[0] == '"' {
        var s string
        if err := json.Unmarshal(b, &s); err != nil { return err }
        if strings.EqualFold(s, unrankedText) || s == "" {
            *r = Unranked()
            return nil
        }
        return fmt.Errorf("invalid rank %q", s)
    }
    var n int64
    if err := json.Unmarshal(b, &n); err != nil {
        return fmt.Errorf("invalid rank %s: %w", b, err)
    }
    if n < 0 { return fmt.Errorf("negative rank %d", n) }
    *r = Numeric(n)
    return nil
}

// Policy decides what a failed per-user fetch does to the whole batch.
type Policy int

const (
    FailFast Policy = iota
    FailSoft
)

func (p Policy) String() string {
    switch p {
    case FailFast:
        return "fail-fast"
    case FailSoft:
        return "fail-soft"
    }
    return fmt.Sprintf("policy(%d)", int(p))
}

// ParsePolicy reads a policy name as written in configuration.
func ParsePolicy(s string) (Policy, error) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "fail-fast", "failfast", "fast":
        return FailFast, nil
    case "fail-soft", "failsoft", "soft":
        return FailSoft, nil
    }
    return 0, fmt.Errorf("unknown aggregation policy %q", s)
}
