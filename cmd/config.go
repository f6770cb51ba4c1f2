package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/viper"

	rhclient "github.com/robinhood-client/robinhood-client-go"
	"github.com/robinhood-client/robinhood-client-go/pkg/auth"
	"github.com/robinhood-client/robinhood-client-go/pkg/config"
)

// ReadConfig returns the client configuration based on the values provided in 'config.yaml',
// the environment and the command line flags. The 'config.yaml' file is loaded from '/etc/rhclient',
// '$HOME/.rhclient', or the current working directory. If no configuration file is present, the default
// values are returned.
func ReadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()

	viper.SetTypeByDefaultValue(true)
	err := viper.ReadInConfig()
	if err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// newClient builds a client from the configuration.
func newClient(ctx context.Context, opts ...rhclient.Option) (*rhclient.Client, *config.Config, error) {
	cfg, err := ReadConfig()
	if err != nil {
		return nil, nil, err
	}

	client, err := rhclient.New(ctx, cfg, opts...)
	if err != nil {
		return nil, nil, err
	}

	return client, cfg, nil
}

// newAuthenticatedClient builds a client and resumes the stored session.
func newAuthenticatedClient(ctx context.Context) (*rhclient.Client, error) {
	client, _, err := newClient(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := client.Resume(ctx); err != nil {
		_ = client.Close()
		if errors.Is(err, auth.ErrNoSession) {
			return nil, errors.New("not logged in, run 'rhclient login' first")
		}
		return nil, err
	}

	return client, nil
}
