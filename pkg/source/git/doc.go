// Package git keeps a local checkout of a unit repository in sync with its
// remote.
//
// A Repository clones or opens the checkout, pulls the tracked branch and
// reports which files changed. A Poller drives pulls on an interval and
// hands changed files to a callback, normally a reload; when the callback
// fails the checkout is reset to the last commit that loaded cleanly:
//
//	repo, err := git.NewRepository(&cfg.Git, logger)
//	if err != nil {
//		return err
//	}
//	if err := repo.Open(ctx); err != nil {
//		return err
//	}
//	poller := git.NewPoller(repo, cfg.Git.Poll.Interval, reloadFiles, logger)
//	if err := poller.Start(ctx); err != nil {
//		return err
//	}
//	defer poller.Stop()
//
// Authentication supports HTTPS tokens, SSH keys and anonymous access.
package git
