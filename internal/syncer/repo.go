package syncer

import (
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// repo wraps the read-only inspection side of a working clone. All ref and
// history reads go through go-git; anything that mutates the clone goes
// through the git binary instead.
type repo struct {
	gr *gogit.Repository
}

func openRepo(dir string) (*repo, error) {
	gr, err := gogit.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", dir, err)
	}
	return &repo{gr: gr}, nil
}

// headBranch returns the short name of the checked-out branch.
func (r *repo) headBranch() (string, error) {
	ref, err := r.gr.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	if !ref.Name().IsBranch() {
		return "", errors.New("HEAD is detached")
	}
	return ref.Name().Short(), nil
}

// trackingRef returns "remote/branch" the named branch tracks, or "" when it
// tracks nothing.
func (r *repo) trackingRef(branch string) (string, error) {
	cfg, err := r.gr.Config()
	if err != nil {
		return "", fmt.Errorf("read repository config: %w", err)
	}
	b, ok := cfg.Branches[branch]
	if !ok || b.Remote == "" {
		return "", nil
	}
	return b.Remote + "/" + b.Merge.Short(), nil
}

func (r *repo) remoteURL(name string) (string, error) {
	rem, err := r.gr.Remote(name)
	if err != nil {
		return "", fmt.Errorf("remote %s: %w", name, err)
	}
	urls := rem.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("remote %s has no URL", name)
	}
	return urls[0], nil
}

func (r *repo) hasRemote(name string) bool {
	_, err := r.gr.Remote(name)
	return err == nil
}

// resolve turns a revision (branch name, full or abbreviated hash) into a
// commit hash.
func (r *repo) resolve(rev string) (plumbing.Hash, error) {
	h, err := r.gr.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve %s: %w", rev, err)
	}
	return *h, nil
}

// mergeBase finds the common ancestor of two revisions.
func (r *repo) mergeBase(a, b string) (plumbing.Hash, error) {
	ca, err := r.commitOf(a)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	cb, err := r.commitOf(b)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	bases, err := ca.MergeBase(cb)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("merge-base %s %s: %w", a, b, err)
	}
	if len(bases) == 0 {
		return plumbing.ZeroHash, fmt.Errorf("no common ancestor between %s and %s", a, b)
	}
	return bases[0].Hash, nil
}

func (r *repo) commitOf(rev string) (*object.Commit, error) {
	h, err := r.resolve(rev)
	if err != nil {
		return nil, err
	}
	c, err := r.gr.CommitObject(h)
	if err != nil {
		return nil, fmt.Errorf("load commit %s: %w", rev, err)
	}
	return c, nil
}

// isAncestor reports whether a is reachable from b.
func (r *repo) isAncestor(a, b plumbing.Hash) (bool, error) {
	if a == b {
		return true, nil
	}
	ca, err := r.gr.CommitObject(a)
	if err != nil {
		return false, fmt.Errorf("load commit %s: %w", a, err)
	}
	cb, err := r.gr.CommitObject(b)
	if err != nil {
		return false, fmt.Errorf("load commit %s: %w", b, err)
	}
	return ca.IsAncestor(cb)
}

// firstParentChain walks first parents from tip down to stop (exclusive) and
// returns the traversed commits oldest first. It fails when stop is not on
// the first-parent line.
func (r *repo) firstParentChain(tip, stop plumbing.Hash) ([]*object.Commit, error) {
	var chain []*object.Commit
	cur := tip
	for cur != stop {
		c, err := r.gr.CommitObject(cur)
		if err != nil {
			return nil, fmt.Errorf("load commit %s: %w", cur, err)
		}
		chain = append(chain, c)
		if c.NumParents() == 0 {
			return nil, fmt.Errorf("%s is not on the first-parent history of %s", shortHash(stop.String()), shortHash(tip.String()))
		}
		cur = c.ParentHashes[0]
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// localCommits lists the commits on branch above base, oldest first. Merge
// commits cannot be replayed as patches, so their presence is an error.
func (r *repo) localCommits(branch string, base plumbing.Hash) ([]*object.Commit, error) {
	tip, err := r.resolve(branch)
	if err != nil {
		return nil, err
	}
	chain, err := r.firstParentChain(tip, base)
	if err != nil {
		return nil, err
	}
	for _, c := range chain {
		if c.NumParents() > 1 {
			return nil, fmt.Errorf("local commit %s is a merge; flatten local history before syncing", shortHash(c.Hash.String()))
		}
	}
	return chain, nil
}

// countFirstParent counts commits on the first-parent line from tip down to
// stop (exclusive).
func (r *repo) countFirstParent(tip, stop plumbing.Hash) (int, error) {
	chain, err := r.firstParentChain(tip, stop)
	if err != nil {
		return 0, err
	}
	return len(chain), nil
}

// isDirty reports whether the working tree has staged, unstaged, or
// untracked changes.
func (r *repo) isDirty() (bool, error) {
	wt, err := r.gr.Worktree()
	if err != nil {
		return false, fmt.Errorf("open worktree: %w", err)
	}
	st, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("compute worktree status: %w", err)
	}
	return !st.IsClean(), nil
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
