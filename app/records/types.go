package records

// Profile is one scraped profile record as returned by the actor's
// dataset. Only the fields the pipeline relies on are modeled; the raw
// dataset bytes are persisted verbatim elsewhere, so unknown fields are
// never lost.
type Profile struct {
	Username       string `json:"username"`
	FullName       string `json:"fullName"`
	Biography      string `json:"biography"`
	FollowersCount int    `json:"followersCount"`
	LatestPosts    []Post `json:"latestPosts"`
}

// Post is one post node. Posts nest recursively through ChildPosts
// (carousel items and similar).
type Post struct {
	Caption        string    `json:"caption"`
	DisplayURL     string    `json:"displayUrl"`
	Images         []string  `json:"images"`
	LatestComments []Comment `json:"latestComments"`
	ChildPosts     []Post    `json:"childPosts"`
}

type Comment struct {
	Text string `json:"text"`
}

// MediaRef is a single media URL discovered in the record tree. Index
// is 1-based and assigned in first-seen order, which makes downloaded
// filenames stable across repeated extraction.
type MediaRef struct {
	Index int
	URL   string
}
