package match

import (
	"autotime/folders"
	"autotime/gitlog"
	"autotime/productive"
	"autotime/sessionlog"
)

// ActivityKind discriminates the two activity sources.
type ActivityKind string

const (
	ActivityGit     ActivityKind = "git"
	ActivitySession ActivityKind = "session"
)

// Activity is a tagged union over the two evidence types. Exactly the field
// selected by Kind is set.
type Activity struct {
	Kind    ActivityKind
	Repo    *gitlog.RepoActivity
	Session *sessionlog.SessionActivity
}

func GitActivity(repo gitlog.RepoActivity) Activity {
	return Activity{Kind: ActivityGit, Repo: &repo}
}

func SessionActivity(session sessionlog.SessionActivity) Activity {
	return Activity{Kind: ActivitySession, Session: &session}
}

// ProjectMatch ties one activity to the booking it supports.
type ProjectMatch struct {
	Activity Activity
	Booking  productive.ResolvedBooking
}

// ForBooking selects the activities whose path lies within one of the
// booking's mapped folders. Each repository contributes at most once per
// booking (by path), each session at most once (by session id). Collector
// order is preserved.
func ForBooking(
	booking productive.ResolvedBooking,
	mappedFolders []string,
	gitActivities []gitlog.RepoActivity,
	sessionActivities []sessionlog.SessionActivity,
) []ProjectMatch {
	matches := make([]ProjectMatch, 0, len(gitActivities)+len(sessionActivities))

	seenRepos := make(map[string]struct{})
	for _, repo := range gitActivities {
		if !folders.PathWithinAny(repo.RepoPath, mappedFolders) {
			continue
		}
		if _, ok := seenRepos[repo.RepoPath]; ok {
			continue
		}
		seenRepos[repo.RepoPath] = struct{}{}
		matches = append(matches, ProjectMatch{Activity: GitActivity(repo), Booking: booking})
	}

	seenSessions := make(map[string]struct{})
	for _, session := range sessionActivities {
		if !folders.PathWithinAny(session.ProjectPath, mappedFolders) {
			continue
		}
		if _, ok := seenSessions[session.SessionID]; ok {
			continue
		}
		seenSessions[session.SessionID] = struct{}{}
		matches = append(matches, ProjectMatch{Activity: SessionActivity(session), Booking: booking})
	}

	return matches
}
