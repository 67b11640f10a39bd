// Package syncer moves the fork point between the local main branch and
// upstream LLVM while preserving local commits. The default target is the
// LLVM commit the tracker repository currently pins; a step option moves the
// fork point forward or backward along upstream history instead. Local
// commits are saved as patches, main is reset to the chosen base, and the
// patches are replayed on top.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/llvmbuilder/internal/config"
)

// localBranch is the branch whose fork point is managed.
const localBranch = "main"

var (
	// ErrDirtyWorktree refuses to move history while uncommitted changes exist.
	ErrDirtyWorktree = errors.New("working tree has uncommitted changes")
	// ErrRepoMismatch marks a clone that does not match the sync configuration.
	ErrRepoMismatch = errors.New("repository does not match sync configuration")
)

// Options selects what one Sync invocation does.
type Options struct {
	// Step moves the fork point relative to its current position: a negative
	// count walks back, a positive count forward, 0 keeps it, and "MAX" jumps
	// to the mirror tip. Empty targets the tracker's pinned commit.
	Step string
	// DryRun reports what would happen without touching the clone.
	DryRun bool
}

// Syncer orchestrates one fork-point move on a working clone.
type Syncer struct {
	cfg     config.SyncConfig
	dir     string
	git     *gitRunner
	tracker *Tracker
	out     io.Writer
}

// New builds a Syncer for the clone at dir. Progress lines go to out.
func New(dir string, cfg config.SyncConfig, eng Executor, out io.Writer) *Syncer {
	if out == nil {
		out = io.Discard
	}
	return &Syncer{
		cfg:     cfg,
		dir:     dir,
		git:     &gitRunner{eng: eng, dir: dir, out: out},
		tracker: NewTracker(cfg.TrackerAPIURL, cfg.TrackerSubmodule),
		out:     out,
	}
}

// Sync performs the synchronization: guard the clone, refresh the upstream
// mirror branch, pick the target base, then rebase main onto it by saving
// and replaying the local commits.
func (s *Syncer) Sync(ctx context.Context, opts Options) error {
	r, err := openRepo(s.dir)
	if err != nil {
		return err
	}
	if err := s.guardMainBranch(ctx, r, opts.DryRun); err != nil {
		return err
	}
	if err := s.updateMirror(ctx, opts.DryRun); err != nil {
		return err
	}

	// Checkout and fetch may have moved refs; reread them.
	r, err = openRepo(s.dir)
	if err != nil {
		return err
	}

	trackerCommit, err := s.tracker.PinnedCommit(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Tracker pins LLVM commit %s\n", shortHash(trackerCommit))

	forkPoint, err := r.mergeBase(localBranch, s.cfg.MirrorBranch)
	if err != nil {
		return err
	}
	locals, err := r.localCommits(localBranch, forkPoint)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Fork point %s carries %d local commits\n", shortHash(forkPoint.String()), len(locals))

	var target plumbing.Hash
	if opts.Step != "" {
		target, err = s.stepTarget(r, forkPoint, opts.Step)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Step %s targets %s\n", opts.Step, shortHash(target.String()))
	} else {
		target, err = r.resolve(trackerCommit)
		if err != nil {
			return fmt.Errorf("tracker commit %s is not in the local mirror yet: %w", shortHash(trackerCommit), err)
		}
	}

	if target == forkPoint {
		fmt.Fprintf(s.out, "main is already based on %s\n", shortHash(target.String()))
		return s.reportPosition(r, forkPoint, trackerCommit, len(locals))
	}

	dirty, err := r.isDirty()
	if err != nil {
		return err
	}

	if opts.DryRun {
		if dirty {
			fmt.Fprintln(s.out, "Working tree is dirty; a real sync would refuse to proceed")
		}
		fmt.Fprintf(s.out, "Dry run: would rebase main onto %s, replaying %d local commits\n",
			shortHash(target.String()), len(locals))
		return s.reportPosition(r, forkPoint, trackerCommit, len(locals))
	}
	if dirty {
		return fmt.Errorf("%w: commit or stash before syncing", ErrDirtyWorktree)
	}

	// Both endpoints must belong to upstream history before anything moves.
	mirrorTip, err := r.resolve(s.cfg.MirrorBranch)
	if err != nil {
		return err
	}
	for _, h := range []plumbing.Hash{forkPoint, target} {
		ok, ancErr := r.isAncestor(h, mirrorTip)
		if ancErr != nil {
			return ancErr
		}
		if !ok {
			return fmt.Errorf("commit %s is not part of %s history", shortHash(h.String()), s.cfg.MirrorBranch)
		}
	}

	var patches []string
	if len(locals) > 0 {
		patchDir, mkErr := os.MkdirTemp("", "llvmbuilder-sync-")
		if mkErr != nil {
			return fmt.Errorf("create patch directory: %w", mkErr)
		}
		defer os.RemoveAll(patchDir)
		patches, err = s.savePatches(ctx, forkPoint, patchDir, len(locals))
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Saved %d patches\n", len(patches))
	}

	backup := "main-backup-" + time.Now().Format("20060102-150405")
	if err := s.git.run(ctx, "branch", "branch", backup); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Created backup branch %s\n", backup)

	if err := s.git.run(ctx, "reset", "reset", "--hard", target.String()); err != nil {
		fmt.Fprintf(s.out, "Restore the previous state with: git reset --hard %s\n", backup)
		return err
	}
	for i, p := range patches {
		fmt.Fprintf(s.out, "Applying patch %d/%d: %s\n", i+1, len(patches), filepath.Base(p))
		if err := s.git.run(ctx, "am", "am", p); err != nil {
			fmt.Fprintf(s.out, "Resolve conflicts and continue with: git am --continue\n")
			fmt.Fprintf(s.out, "Or restore the previous state: git am --abort && git reset --hard %s\n", backup)
			return fmt.Errorf("apply %s: %w", filepath.Base(p), err)
		}
	}
	fmt.Fprintf(s.out, "Rebased main onto %s with %d local commits\n", shortHash(target.String()), len(patches))
	fmt.Fprintf(s.out, "Delete the backup with: git branch -D %s\n", backup)

	r, err = openRepo(s.dir)
	if err != nil {
		return err
	}
	return s.reportPosition(r, target, trackerCommit, len(locals))
}

// guardMainBranch puts the clone on main and verifies it tracks origin/main,
// plus the optional origin URL fragment check.
func (s *Syncer) guardMainBranch(ctx context.Context, r *repo, dryRun bool) error {
	branch, err := r.headBranch()
	if err != nil {
		return err
	}
	if branch != localBranch {
		if dryRun {
			fmt.Fprintf(s.out, "Dry run: would switch from %s to %s\n", branch, localBranch)
		} else {
			fmt.Fprintf(s.out, "On branch %s, switching to %s\n", branch, localBranch)
			if err := s.git.run(ctx, "checkout", "checkout", localBranch); err != nil {
				return err
			}
		}
	}

	tracking, err := r.trackingRef(localBranch)
	if err != nil {
		return err
	}
	if tracking != "origin/"+localBranch {
		return fmt.Errorf("%w: main tracks %q, want origin/main", ErrRepoMismatch, tracking)
	}

	if frag := s.cfg.RequireOriginSubstring; frag != "" {
		url, urlErr := r.remoteURL("origin")
		if urlErr != nil {
			return urlErr
		}
		if !strings.Contains(url, frag) {
			return fmt.Errorf("%w: origin URL %q does not contain %q", ErrRepoMismatch, url, frag)
		}
	}
	return nil
}

// updateMirror makes sure the upstream remote exists and fast-forwards the
// local mirror branch from it, pushing the moved branch back to origin on a
// best-effort basis.
func (s *Syncer) updateMirror(ctx context.Context, dryRun bool) error {
	mirror := s.cfg.MirrorBranch
	r, err := openRepo(s.dir)
	if err != nil {
		return err
	}

	if dryRun {
		if _, err := r.resolve(mirror); err != nil {
			return fmt.Errorf("branch %s is missing; run sync without --dry-run to fetch it first", mirror)
		}
		fmt.Fprintf(s.out, "Dry run: skipping fetch of %s\n", mirror)
		return nil
	}

	if !r.hasRemote(s.cfg.UpstreamRemote) {
		fmt.Fprintf(s.out, "Adding remote %s (%s)\n", s.cfg.UpstreamRemote, s.cfg.UpstreamURL)
		if err := s.git.run(ctx, "remote-add", "remote", "add", s.cfg.UpstreamRemote, s.cfg.UpstreamURL); err != nil {
			return err
		}
	}

	oldTip, _ := r.resolve(mirror) // zero when the branch does not exist yet

	fmt.Fprintf(s.out, "Fetching %s/main into %s\n", s.cfg.UpstreamRemote, mirror)
	if err := s.git.run(ctx, "fetch", "fetch", s.cfg.UpstreamRemote, "main:"+mirror); err != nil {
		return err
	}

	fresh, err := openRepo(s.dir)
	if err != nil {
		return err
	}
	newTip, err := fresh.resolve(mirror)
	if err != nil {
		return fmt.Errorf("branch %s missing after fetch: %w", mirror, err)
	}
	if newTip == oldTip {
		fmt.Fprintf(s.out, "%s already up to date\n", mirror)
		return nil
	}
	slog.Debug("Mirror branch updated", "branch", mirror,
		"from", shortHash(oldTip.String()), "to", shortHash(newTip.String()))

	if err := s.git.run(ctx, "push", "push", "origin", mirror+":"+mirror); err != nil {
		slog.Warn("Pushing mirror branch to origin failed", "branch", mirror, "error", err)
		fmt.Fprintf(s.out, "Push it manually with: git push origin %s:%s\n", mirror, mirror)
	}
	return nil
}

// stepTarget resolves the fork-point movement requested by a step value.
func (s *Syncer) stepTarget(r *repo, forkPoint plumbing.Hash, step string) (plumbing.Hash, error) {
	if step == "MAX" {
		return r.resolve(s.cfg.MirrorBranch)
	}
	n, err := strconv.Atoi(step)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("invalid step %q: want an integer or MAX", step)
	}
	switch {
	case n == 0:
		return forkPoint, nil
	case n > 0:
		tip, err := r.resolve(s.cfg.MirrorBranch)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		ahead, err := r.firstParentChain(tip, forkPoint)
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("fork point %s is not on %s: %w",
				shortHash(forkPoint.String()), s.cfg.MirrorBranch, err)
		}
		if n >= len(ahead) {
			if n > len(ahead) {
				fmt.Fprintf(s.out, "Only %d commits ahead; clamping to the %s tip\n", len(ahead), s.cfg.MirrorBranch)
			}
			return tip, nil
		}
		return ahead[n-1].Hash, nil
	default:
		cur := forkPoint
		for i := 0; i < -n; i++ {
			c, err := r.gr.CommitObject(cur)
			if err != nil {
				return plumbing.ZeroHash, fmt.Errorf("load commit %s: %w", cur, err)
			}
			if c.NumParents() == 0 {
				fmt.Fprintf(s.out, "History ends %d commits back; clamping to the root commit\n", i)
				break
			}
			cur = c.ParentHashes[0]
		}
		return cur, nil
	}
}

// savePatches writes one patch file per local commit and returns them in
// apply order.
func (s *Syncer) savePatches(ctx context.Context, forkPoint plumbing.Hash, dir string, want int) ([]string, error) {
	if err := s.git.run(ctx, "format-patch", "format-patch", "-o", dir, forkPoint.String()+".."+localBranch); err != nil {
		return nil, err
	}
	patches, err := filepath.Glob(filepath.Join(dir, "*.patch"))
	if err != nil {
		return nil, fmt.Errorf("list patches: %w", err)
	}
	sort.Strings(patches)
	if len(patches) != want {
		return nil, fmt.Errorf("saved %d patches for %d local commits", len(patches), want)
	}
	return patches, nil
}

// reportPosition prints where the fork point sits relative to the tracker's
// pinned commit and the mirror tip.
func (s *Syncer) reportPosition(r *repo, fork plumbing.Hash, trackerCommit string, localCount int) error {
	mirrorTip, err := r.resolve(s.cfg.MirrorBranch)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "\nFork point:     %s (%d local commits on top)\n", shortHash(fork.String()), localCount)
	if tracker, resErr := r.resolve(trackerCommit); resErr != nil {
		fmt.Fprintf(s.out, "Tracker commit: %s (not in local mirror)\n", shortHash(trackerCommit))
	} else {
		fmt.Fprintf(s.out, "Tracker commit: %s %s\n", shortHash(trackerCommit), s.describeOffset(r, fork, tracker))
	}
	fmt.Fprintf(s.out, "Mirror tip:     %s %s\n", shortHash(mirrorTip.String()), s.describeOffset(r, fork, mirrorTip))
	return nil
}

// describeOffset renders where other sits relative to the fork point.
func (s *Syncer) describeOffset(r *repo, fork, other plumbing.Hash) string {
	if fork == other {
		return "(same as fork point)"
	}
	if ahead, _ := r.isAncestor(fork, other); ahead {
		if n, err := r.countFirstParent(other, fork); err == nil {
			return fmt.Sprintf("(%d ahead of fork point)", n)
		}
		return "(ahead of fork point)"
	}
	if behind, _ := r.isAncestor(other, fork); behind {
		if n, err := r.countFirstParent(fork, other); err == nil {
			return fmt.Sprintf("(%d behind fork point)", n)
		}
		return "(behind fork point)"
	}
	return "(unrelated history)"
}
