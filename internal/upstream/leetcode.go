package upstream

import (
    "context"
    "net/url"
    "strings"

    "github.com/kmatotek/WCPCLeaderboard/internal/models"
    "golang.org/x/sync/errgroup"
)

const leetcodeProvider = "leetcode"

// LeetCode merges two calls per user: the profile and the contest history.
type LeetCode struct {
    base string
    c    Doer
}

var _ Fetcher[models.LeetCodeEntry] = (*LeetCode)(nil)

func NewLeetCode(baseURL string, c Doer) *LeetCode {
    return &LeetCode{base: strings.TrimRight(baseURL, "/"), c: c}
}

type lcProfile struct {
    TotalSolved *int         `json:"totalSolved"`
    Ranking     *models.Rank `json:"ranking"`
}

type lcContestResult struct {
    Ranking int64 `json:"ranking"`
    Contest *struct {
        Title string `json:"title"`
    } `json:"contest"`
}

type lcContestInfo struct {
    Data *struct {
        History []lcContestResult `json:"userContestRankingHistory"`
    } `json:"data"`
}

func (l *LeetCode) Fetch(ctx context.Context, username string) (models.LeetCodeEntry, error) {
    esc := url.PathEscape(username)
    var (
        prof    lcProfile
        contest lcContestInfo
    )
    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() error { return getJSON(gctx, l.c, l.base+"/userProfile/"+esc, &prof) })
    g.Go(func() error { return getJSON(gctx, l.c, l.base+"/userContestRankingInfo/"+esc, &contest) })
    if err := g.Wait(); err != nil {
        return models.LeetCodeEntry{}, &FetchError{Provider: leetcodeProvider, Username: username, Err: err}
    }
    if prof.TotalSolved == nil {
        return models.LeetCodeEntry{}, &FetchError{Provider: leetcodeProvider, Username: username,
            Err: malformed("profile has no totalSolved")}
    }

    e := models.LeetCodeEntry{
        Username:       username,
        TotalSolved:    *prof.TotalSolved,
        Ranking:        models.Unranked(),
        ContestRanking: models.Unranked(),
    }
    if prof.Ranking != nil { e.Ranking = *prof.Ranking }
    e.ContestRanking, e.ContestTitle = latestContest(contest)
    return e, nil
}

// latestContest reads the last entry of a chronologically ordered history.
// A zero ranking counts as unranked.
func latestContest(info lcContestInfo) (models.Rank, *string) {
    if info.Data == nil || len(info.Data.History) == 0 {
        return models.Unranked(), nil
    }
    last := info.Data.History[len(info.Data.History)-1]
    rank := models.Unranked()
    if last.Ranking > 0 { rank = models.Numeric(last.Ranking) }
    var title *string
    if last.Contest != nil && last.Contest.Title != "" {
        t := last.Contest.Title
        title = &t
    }
    return rank, title
}
