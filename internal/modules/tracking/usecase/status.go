package usecase

import (
	"fmt"
	"math"

	bookmarkdomain "docgrind/internal/modules/bookmark/domain"
	progressdomain "docgrind/internal/modules/progress/domain"
	"docgrind/internal/modules/tracking/dto"
	"docgrind/internal/platform/announce"
)

// HandleShortcut resolves an alt+key press and runs its command.
func (i *Interactor) HandleShortcut(code string, alt bool) (announce.Command, bool) {
	var (
		cmd announce.Command
		ok  bool
	)
	i.loop.Do(func() {
		if i.destroyed || i.announcer == nil {
			return
		}
		cmd, ok = i.announcer.HandleKey(code, alt)
		if !ok {
			return
		}
		if err := i.runCommand(cmd); err != nil {
			i.log.Debug().Err(err).Str("command", string(cmd)).Msg("shortcut had no effect")
		}
	})
	return cmd, ok
}

func (i *Interactor) runCommand(cmd announce.Command) error {
	switch cmd {
	case announce.CommandShowProgress:
		pct := 0.0
		if i.progress != nil {
			pct = i.progress.ProgressPercentage
		}
		i.announcer.Announce(fmt.Sprintf("Reading progress: %d%% complete", int(math.Round(pct))), announce.Polite)
	case announce.CommandCreateBookmark:
		_, err := i.createBookmark(dto.CreateBookmarkInput{})
		return err
	case announce.CommandNextChapter:
		return i.stepChapter(1)
	case announce.CommandPreviousChapter:
		return i.stepChapter(-1)
	case announce.CommandResume:
		return i.resumeReading()
	case announce.CommandToggleTracking:
		switch i.calculator.State() {
		case progressdomain.StateTracking:
			i.pause()
		case progressdomain.StatePaused:
			i.resume()
		default:
			_, err := i.startTracking()
			return err
		}
	}
	return nil
}

func (i *Interactor) Status() dto.StatusOutput {
	var out dto.StatusOutput
	i.loop.Do(func() {
		s := i.snapshot()
		out = dto.StatusOutput{
			DocumentID:   s.DocumentID,
			Progress:     s.ProgressPercentage(),
			SessionWords: s.SessionWords(),
			Chapter:      s.Chapter,
			RemainingMs:  s.Estimate.RemainingTime,
			TotalMs:      s.Estimate.TotalReadingTime,
			Confidence:   s.Estimate.Confidence,
			Speed:        s.Speed.Current,
			Trend:        string(s.Speed.Trend),
			Sessions:     len(s.Sessions),
			Bookmarks:    len(s.Bookmarks),
			Tracking:     s.Tracking,
			CanResume:    s.CanResume(),
		}
		if s.Progress != nil {
			out.WordsRead = s.Progress.WordsRead
			out.TotalWords = s.Progress.TotalWords
			if out.TotalMs == 0 {
				out.TotalMs = s.Progress.EstimatedTotalTime
				out.RemainingMs = s.Progress.EstimatedRemainingTime
			}
		}
		out.Recommendations = i.estimator.Recommendations(s.Analytics, s.Estimate)
	})
	return out
}

func (i *Interactor) Bookmarks() []dto.BookmarkOutput {
	var out []dto.BookmarkOutput
	i.loop.Do(func() {
		for _, b := range i.bookmarks.GetAllBookmarks() {
			out = append(out, bookmarkOutput(b))
		}
	})
	return out
}

func bookmarkOutput(b bookmarkdomain.Bookmark) dto.BookmarkOutput {
	return dto.BookmarkOutput{
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		Percentage:  b.Position.ScrollPercentage,
		Chapter:     b.Position.CurrentChapter,
		Tags:        b.Tags,
		Auto:        b.IsAuto(),
		CreatedAt:   b.CreatedAt,
	}
}

func (i *Interactor) Sessions() []dto.SessionOutput {
	var out []dto.SessionOutput
	i.loop.Do(func() {
		for _, s := range i.calculator.Sessions() {
			out = append(out, dto.SessionOutput{
				SessionID:  s.SessionID,
				StartTime:  s.StartTime,
				TotalTime:  s.TotalTime,
				WordsRead:  s.WordsRead,
				Speed:      s.ReadingSpeed,
				Completion: s.CompletionPercentage,
				Active:     !s.Ended(),
			})
		}
	})
	return out
}
