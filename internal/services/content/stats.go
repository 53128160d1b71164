package content

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/NordCoder/EduPortal/internal/domain/content"
	"github.com/NordCoder/EduPortal/internal/obs"
)

// Stats runs the eight counts in parallel. If any count fails the whole
// result is zero.
func (s *Service) Stats(ctx context.Context) content.Stats {
	var st content.Stats
	published := true
	all := content.Filter{}
	pub := content.Filter{Published: &published}

	counts := []struct {
		kind content.Kind
		f    content.Filter
		dst  *int64
	}{
		{content.KindNews, all, &st.TotalNews},
		{content.KindNews, pub, &st.PublishedNews},
		{content.KindAnnouncement, all, &st.TotalAnnouncements},
		{content.KindAnnouncement, pub, &st.PublishedAnnouncements},
		{content.KindEvent, all, &st.TotalEvents},
		{content.KindEvent, pub, &st.PublishedEvents},
		{content.KindExamResult, all, &st.TotalExamResults},
		{content.KindExamResult, pub, &st.PublishedExamResults},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range counts {
		c := c
		g.Go(func() error {
			n, err := s.repo.Count(gctx, c.kind, c.f)
			if err != nil {
				return err
			}
			*c.dst = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		obs.WithTrace(ctx, s.log).Error("stats failed", zap.Error(err))
		return content.Stats{}
	}
	return st
}
