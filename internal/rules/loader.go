package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sla-attribution-service/internal/domain"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type fileAllotment struct {
	Hours float64 `yaml:"hours" validate:"gt=0"`
	Days  int     `yaml:"days" validate:"gt=0"`
}

type fileZoned struct {
	Zone    string        `yaml:"zone" validate:"required,oneof=out-of-state zone-1-2"`
	Inside  fileAllotment `yaml:"inside"`
	Outside fileAllotment `yaml:"outside"`
}

type fileRule struct {
	Client              string         `yaml:"client" validate:"required"`
	Start               string         `yaml:"start" validate:"required"`
	End                 string         `yaml:"end" validate:"required"`
	Duration            *fileAllotment `yaml:"duration" validate:"required_without=Zoned,excluded_with=Zoned"`
	Zoned               *fileZoned     `yaml:"zoned" validate:"required_without=Duration"`
	TargetRate          float64        `yaml:"target_rate" validate:"gt=0,lte=1"`
	Mode                string         `yaml:"mode" validate:"required,oneof=broad narrow"`
	RoundToEndOfDay     bool           `yaml:"round_to_end_of_day"`
	LateHandoverHour    *int           `yaml:"late_handover_hour" validate:"omitempty,min=0,max=23"`
	CheckInboundLatency bool           `yaml:"check_hub_inbound_latency"`
}

type registryFile struct {
	Rules []fileRule `yaml:"rules" validate:"required,min=1,dive"`
}

var validate = validator.New()

// LoadFile reads a YAML rule registry from path.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load rules: read %q: %w", path, err)
	}

	reg, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("load rules %q: %w", path, err)
	}
	return reg, nil
}

// Load decodes a YAML rule registry. Every rule must configure exactly one of
// `duration` or `zoned`.
func Load(r io.Reader) (*Registry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file registryFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty rule file", domain.ErrInvalidRule)
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	if err := validate.Struct(file); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRule, err)
	}

	out := make([]domain.Rule, 0, len(file.Rules))
	for i, fr := range file.Rules {
		rule, err := fr.toRule()
		if err != nil {
			return nil, fmt.Errorf("rule #%d: %w", i+1, err)
		}
		out = append(out, rule)
	}

	return New(out...)
}

func (fr fileRule) toRule() (domain.Rule, error) {
	if fr.Duration != nil && fr.Zoned != nil {
		return domain.Rule{}, fmt.Errorf("%w: client %s: both duration and zoned configured", domain.ErrInvalidRule, fr.Client)
	}

	start, err := domain.ParseMilestone(fr.Start)
	if err != nil {
		return domain.Rule{}, fmt.Errorf("%w: client %s: %v", domain.ErrInvalidRule, fr.Client, err)
	}
	end, err := domain.ParseMilestone(fr.End)
	if err != nil {
		return domain.Rule{}, fmt.Errorf("%w: client %s: %v", domain.ErrInvalidRule, fr.Client, err)
	}

	var policy domain.DurationPolicy
	if fr.Duration != nil {
		policy = domain.FlatDuration{Allotment: fr.Duration.allotment()}
	} else {
		zone, ok := domain.ZoneByName(fr.Zoned.Zone)
		if !ok {
			return domain.Rule{}, fmt.Errorf("%w: client %s: unknown zone %q", domain.ErrInvalidRule, fr.Client, fr.Zoned.Zone)
		}
		policy = domain.ZonedDuration{
			Zone:    zone,
			Inside:  fr.Zoned.Inside.allotment(),
			Outside: fr.Zoned.Outside.allotment(),
		}
	}

	return domain.Rule{
		Client:              fr.Client,
		Start:               start,
		End:                 end,
		Duration:            policy,
		TargetRate:          fr.TargetRate,
		Mode:                domain.CompletionMode(fr.Mode),
		RoundToEndOfDay:     fr.RoundToEndOfDay,
		LateHandoverHour:    fr.LateHandoverHour,
		CheckInboundLatency: fr.CheckInboundLatency,
	}, nil
}

func (a fileAllotment) allotment() domain.Allotment {
	return domain.Allotment{Hours: a.Hours, Days: a.Days}
}
