package monetize

import (
	"context"
	"errors"
)

// Fanout presents every decision through each presenter in turn. All
// presenters are called even when one fails.
type Fanout []Presenter

func (f Fanout) ShowInterstitial(ctx context.Context, ad Interstitial) error {
	var errs []error
	for _, p := range f {
		if err := p.ShowInterstitial(ctx, ad); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) ShowSticky(ctx context.Context, ad Sticky) error {
	var errs []error
	for _, p := range f {
		if err := p.ShowSticky(ctx, ad); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
