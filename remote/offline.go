package remote

import "context"

// Offline is a Collection whose every call fails with ErrOffline.
type Offline string

func (o Offline) Name() string { return string(o) }

func (Offline) List(context.Context, string, int) ([]Record, error)     { return nil, ErrOffline }
func (Offline) Select(context.Context, SelectOptions) ([]Record, error) { return nil, ErrOffline }
func (Offline) Get(context.Context, string) (Record, error)             { return nil, ErrOffline }
func (Offline) Create(context.Context, Record) (Record, error)          { return nil, ErrOffline }
func (Offline) Update(context.Context, string, Record) (Record, error)  { return nil, ErrOffline }
func (Offline) Upsert(context.Context, Record, string) (Record, error)  { return nil, ErrOffline }
func (Offline) Delete(context.Context, string) error                    { return ErrOffline }
func (Offline) DeleteBy(context.Context, string, any) error             { return ErrOffline }
