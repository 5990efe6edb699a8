package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/optivoo/crm/internal/onboarding"
)

// ErrNotSignedIn is returned by commands that need a signed-in account
var ErrNotSignedIn = errors.New("not signed in. Run 'optivoo login' first")

// NewOnboardingCmd creates the onboarding command
func NewOnboardingCmd(opts ...Option) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "onboarding",
		Short: "Set up your business profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := resolveDeps(cmd, opts)
			if err != nil {
				return err
			}
			return runOnboarding(cmd, d, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Run again even if onboarding is complete")

	return cmd
}

func runOnboarding(cmd *cobra.Command, d *deps, force bool) error {
	ctx := cmd.Context()

	m, unsubscribe := d.newManager()
	defer unsubscribe()

	m.Initialize(ctx)
	st := m.Snapshot()
	if !st.IsAuthenticated() {
		return ErrNotSignedIn
	}
	if !st.NeedsOnboarding() && !force {
		fmt.Fprintln(d.out, "Onboarding is already complete. Use --force to change your answers.")
		return nil
	}

	profile, err := d.apiClient.GetOnboarding(ctx, st.Token)
	if err != nil {
		return fmt.Errorf("failed to load onboarding profile: %w", err)
	}

	for i, step := range onboarding.Steps {
		fmt.Fprintf(d.out, "Step %d of %d\n", i+1, len(onboarding.Steps))
		if err := askStep(d.prompter, step, &profile); err != nil {
			return err
		}
	}

	if err := onboarding.Validate(profile); err != nil {
		return err
	}

	if _, err := d.apiClient.SaveOnboarding(ctx, st.Token, profile); err != nil {
		return fmt.Errorf("failed to save onboarding profile: %w", err)
	}

	m.CompleteOnboarding()
	return nil
}

func askStep(p Prompter, step onboarding.Step, profile *onboarding.Profile) error {
	var err error
	switch step {
	case onboarding.StepSector:
		profile.Sector, err = p.Select("What is your business sector?", onboarding.Sectors, profile.Sector)
	case onboarding.StepTone:
		profile.Tone, err = p.Select("How should the assistant talk to your customers?", onboarding.Tones, profile.Tone)
	case onboarding.StepHours:
		profile.HoursStart, err = p.Input("Opening time (HH:MM)", profile.HoursStart, clockValidator(profile, true))
		if err != nil {
			break
		}
		profile.HoursEnd, err = p.Input("Closing time (HH:MM)", profile.HoursEnd, clockValidator(profile, false))
		if err != nil {
			break
		}
		err = onboarding.ValidateStep(*profile, step)
	case onboarding.StepSupport:
		profile.SupportType, err = p.Select("Which channels should support cover?", onboarding.SupportTypes, profile.SupportType)
	}
	if err != nil {
		return fmt.Errorf("onboarding %s: %w", step, err)
	}
	return nil
}

// clockValidator checks an HH:MM answer. The closing time is also checked
// against the opening time already given.
func clockValidator(profile *onboarding.Profile, start bool) func(string) error {
	return func(v string) error {
		if _, err := onboarding.ParseClock(v); err != nil {
			return fmt.Errorf("use HH:MM, e.g. 09:00")
		}
		if start {
			return nil
		}
		candidate := *profile
		candidate.HoursEnd = v
		return onboarding.ValidateStep(candidate, onboarding.StepHours)
	}
}
