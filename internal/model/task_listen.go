package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ListenTask binds one or more event sources and consumes events with one of
// three strategies (§4.9).
type ListenTask struct {
	TaskBase `yaml:",inline"`
	Listen   ListenSpec `yaml:"listen"`
}

func (l *ListenTask) GetBase() *TaskBase { return &l.TaskBase }
func (l *ListenTask) Kind() string       { return "listen" }

type ListenStrategy string

const (
	ListenOne ListenStrategy = "one"
	ListenAny ListenStrategy = "any"
	ListenAll ListenStrategy = "all"
)

type ListenSpec struct {
	To       ListenTo       `yaml:"to"`
	Until    Expr           `yaml:"until,omitempty"`
	Foreach  *ListenForeach `yaml:"foreach,omitempty"`
	ReadMode ReadMode       `yaml:"read,omitempty"`
}

// ReadMode selects how a delivered event body is surfaced to the bound task
// list: the raw transport body, the full CloudEvent envelope, or just its
// `data` field.
type ReadMode string

const (
	ReadData     ReadMode = "data"
	ReadEnvelope ReadMode = "envelope"
	ReadRaw      ReadMode = "raw"
)

type ListenTo struct {
	Strategy ListenStrategy     `yaml:"-"`
	Sources  []EventSourceSpec `yaml:"-"`
}

type EventSourceSpec struct {
	HTTP *HTTPEventSource `yaml:"http,omitempty"`
	GRPC *GRPCEventSource `yaml:"grpc,omitempty"`
}

type HTTPEventSource struct {
	Path   string `yaml:"path"`
	Schema string `yaml:"schema,omitempty"`
}

type GRPCEventSource struct {
	Service string `yaml:"service"`
	Method  string `yaml:"method"`
	Proto   string `yaml:"proto,omitempty"`
}

type ListenForeach struct {
	Each string   `yaml:"each,omitempty"`
	Do   TaskList `yaml:"do"`
}

func (t *ListenTo) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]struct {
		Sources []EventSourceSpec `yaml:"with"`
		Source  *EventSourceSpec  `yaml:"source"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	for _, strategy := range []ListenStrategy{ListenOne, ListenAny, ListenAll} {
		v, ok := raw[string(strategy)]
		if !ok {
			continue
		}
		t.Strategy = strategy
		if v.Source != nil {
			t.Sources = []EventSourceSpec{*v.Source}
		} else {
			t.Sources = v.Sources
		}
		return nil
	}
	return fmt.Errorf("model: listen.to must declare exactly one of one/any/all")
}

func (t ListenTo) MarshalYAML() (interface{}, error) {
	return map[string]interface{}{
		string(t.Strategy): map[string]interface{}{"with": t.Sources},
	}, nil
}
