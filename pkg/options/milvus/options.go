// Package milvusopts provides options for Milvus client configuration.
package milvusopts

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/casegen/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains Milvus client configuration.
type Options struct {
	// Address is the Milvus server address (host:port).
	Address string `json:"address" mapstructure:"address"`

	// Database is the database name to use.
	Database string `json:"database" mapstructure:"database"`

	// Username for authentication.
	Username string `json:"username" mapstructure:"username"`

	// Password for authentication.
	Password string `json:"-" mapstructure:"password"`

	// Timeout for connection and operations.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// CollectionPrefix names the per-request collections.
	CollectionPrefix string `json:"collection-prefix" mapstructure:"collection-prefix"`

	// NList is the IVF_FLAT cluster count.
	NList int `json:"nlist" mapstructure:"nlist"`

	// NProbe is the number of clusters probed per search. NProbe >= NList makes
	// the search exhaustive.
	NProbe int `json:"nprobe" mapstructure:"nprobe"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Address:          "localhost:19530",
		Database:         "default",
		Timeout:          30 * time.Second,
		CollectionPrefix: "casegen",
		NList:            16,
		NProbe:           16,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "milvus."
	fs.StringVar(&o.Address, p+"address", o.Address, "Milvus server address (host:port).")
	fs.StringVar(&o.Database, p+"database", o.Database, "Milvus database name.")
	fs.StringVar(&o.Username, p+"username", o.Username, "Milvus username for authentication.")
	fs.StringVar(&o.Password, p+"password", o.Password, "Milvus password for authentication.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Connection and operation timeout.")
	fs.StringVar(&o.CollectionPrefix, p+"collection-prefix", o.CollectionPrefix, "Prefix of the per-request collection names.")
	fs.IntVar(&o.NList, p+"nlist", o.NList, "IVF_FLAT nlist used when indexing a request collection.")
	fs.IntVar(&o.NProbe, p+"nprobe", o.NProbe, "IVF_FLAT nprobe used at search time.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Address == "" {
		errs = append(errs, fmt.Errorf("milvus address is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("milvus timeout must be positive"))
	}
	if o.CollectionPrefix == "" {
		errs = append(errs, fmt.Errorf("milvus collection prefix is required"))
	}
	if o.NList <= 0 {
		errs = append(errs, fmt.Errorf("milvus nlist must be positive"))
	}
	if o.NProbe <= 0 {
		errs = append(errs, fmt.Errorf("milvus nprobe must be positive"))
	}
	return errs
}
