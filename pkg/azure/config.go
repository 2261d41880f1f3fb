package azure

import (
	"context"
	"fmt"
	"strings"

	"github.com/microsoft/azure-devops-go-api/azuredevops/v7"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/core"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/work"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/workitemtracking"
	"github.com/theapemachine/mcp-wrappers/pkg/errors"
)

// AzureDevOpsConfig holds the organization, credentials and default scope.
type AzureDevOpsConfig struct {
	Organization        string `mapstructure:"organization"`
	OrganizationURL     string `mapstructure:"organizationURL"`
	PersonalAccessToken string `mapstructure:"pat"`
	Project             string `mapstructure:"project"`
	Team                string `mapstructure:"team"`
}

// URL is the organization URL, derived from the name when not set.
func (config AzureDevOpsConfig) URL() string {
	if config.OrganizationURL != "" {
		return strings.TrimRight(config.OrganizationURL, "/")
	}

	if config.Organization == "" {
		return ""
	}

	return "https://dev.azure.com/" + config.Organization
}

/*
Validate reports which settings are missing. Project and team are only
required by the operations that are scoped to them.
*/
func (config AzureDevOpsConfig) Validate(needProject, needTeam bool) error {
	var missing []string

	if config.URL() == "" {
		missing = append(missing, "AZURE_DEVOPS_ORG")
	}

	if config.PersonalAccessToken == "" {
		missing = append(missing, "AZDO_PAT")
	}

	if needProject && config.Project == "" {
		missing = append(missing, "AZURE_DEVOPS_PROJECT")
	}

	if needTeam && config.Team == "" {
		missing = append(missing, "AZURE_DEVOPS_TEAM")
	}

	if len(missing) > 0 {
		return &errors.MissingCredentialError{Service: "Azure DevOps", Keys: missing}
	}

	return nil
}

// CoreClient lists projects.
type CoreClient interface {
	GetProjects(context.Context, core.GetProjectsArgs) (*core.GetProjectsResponseValue, error)
}

// TrackingClient queries work items and their discussion.
type TrackingClient interface {
	QueryByWiql(context.Context, workitemtracking.QueryByWiqlArgs) (*workitemtracking.WorkItemQueryResult, error)
	GetWorkItems(context.Context, workitemtracking.GetWorkItemsArgs) (*[]workitemtracking.WorkItem, error)
	GetComments(context.Context, workitemtracking.GetCommentsArgs) (*workitemtracking.CommentList, error)
}

// WorkClient reads team iterations.
type WorkClient interface {
	GetTeamIterations(context.Context, work.GetTeamIterationsArgs) (*[]work.TeamSettingsIteration, error)
}

// Clients bundles the API areas the service talks to.
type Clients struct {
	Core     CoreClient
	Tracking TrackingClient
	Work     WorkClient
}

/*
Connect opens a PAT connection and creates the area clients. Creating the
tracking and work clients resolves their resource areas over the network.
*/
func Connect(ctx context.Context, config AzureDevOpsConfig) (Clients, error) {
	if err := config.Validate(false, false); err != nil {
		return Clients{}, err
	}

	conn := azuredevops.NewPatConnection(config.URL(), config.PersonalAccessToken)

	coreClient, err := core.NewClient(ctx, conn)

	if err != nil {
		return Clients{}, fmt.Errorf("failed to create core client: %w", err)
	}

	trackingClient, err := workitemtracking.NewClient(ctx, conn)

	if err != nil {
		return Clients{}, fmt.Errorf("failed to create work item tracking client: %w", err)
	}

	workClient, err := work.NewClient(ctx, conn)

	if err != nil {
		return Clients{}, fmt.Errorf("failed to create work client: %w", err)
	}

	return Clients{Core: coreClient, Tracking: trackingClient, Work: workClient}, nil
}
