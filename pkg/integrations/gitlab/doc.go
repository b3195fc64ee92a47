// Package gitlab provides an HTTP client for the GitLab API.
//
// # Overview
//
// This package discovers releases of projects hosted on GitLab, complementing
// the GitHub client. Tags are listed through the v4 API and archives are
// downloaded from the instance's web routes.
//
// # Usage
//
//	client := gitlab.NewClient(gitlab.Options{Token: token, TTL: time.Hour})
//	tags, err := client.Tags(ctx, "group", "project", false)
//
// # Authentication
//
// A GitLab personal access token is optional and is sent as PRIVATE-TOKEN.
// Without a token, only public projects can be accessed.
//
// # Archives
//
// Archive entries sit below "{project}-{commit}-{commit}", returned by
// [Client.ArchiveSubPath].
package gitlab
