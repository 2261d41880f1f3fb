package azure

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/core"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/work"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/workitemtracking"
	"github.com/theapemachine/mcp-wrappers/pkg/format"
)

const (
	// BatchSize is the most ids GetWorkItems accepts in one call.
	BatchSize      = 200
	DefaultWiqlTop = 200
	MaxWiqlTop     = 1000
)

type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	State       string `json:"state,omitempty"`
	URL         string `json:"url,omitempty"`
}

type WorkItem struct {
	ID            int            `json:"id"`
	Rev           int            `json:"rev,omitempty"`
	Title         string         `json:"title"`
	Type          string         `json:"type"`
	State         string         `json:"state"`
	AssignedTo    string         `json:"assignedTo,omitempty"`
	IterationPath string         `json:"iterationPath,omitempty"`
	URL           string         `json:"url,omitempty"`
	Fields        map[string]any `json:"fields,omitempty"`
}

type Comment struct {
	ID      int    `json:"id"`
	Author  string `json:"author,omitempty"`
	Created string `json:"created,omitempty"`
	Text    string `json:"text"`
}

type SprintOutput struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	IterationPath string `json:"iterationPath"`
	StartDate     string `json:"startDate,omitempty"`
	EndDate       string `json:"endDate,omitempty"`
	TimeFrame     string `json:"timeFrame,omitempty"`
	URL           string `json:"url,omitempty"`
}

type SprintOverview struct {
	Sprint  SprintOutput   `json:"sprint"`
	Total   int            `json:"total"`
	ByState map[string]int `json:"byState"`
	ByType  map[string]int `json:"byType"`
	Items   []WorkItem     `json:"items"`
}

/*
Service runs the Azure DevOps operations. The area clients are created on
first use and reused afterwards.
*/
type Service struct {
	config  AzureDevOpsConfig
	connect func(context.Context, AzureDevOpsConfig) (Clients, error)

	mu      sync.Mutex
	clients *Clients
}

func NewService(config AzureDevOpsConfig) *Service {
	return &Service{config: config, connect: Connect}
}

// NewServiceWithClients uses the given clients instead of connecting.
func NewServiceWithClients(config AzureDevOpsConfig, clients Clients) *Service {
	return &Service{config: config, clients: &clients}
}

func (service *Service) Config() AzureDevOpsConfig {
	return service.config
}

func (service *Service) area(ctx context.Context) (Clients, error) {
	service.mu.Lock()
	defer service.mu.Unlock()

	if service.clients != nil {
		return *service.clients, nil
	}

	clients, err := service.connect(ctx, service.config)

	if err != nil {
		return Clients{}, err
	}

	service.clients = &clients

	return clients, nil
}

func (service *Service) project(override string) (string, error) {
	if override = strings.TrimSpace(override); override != "" {
		return override, nil
	}

	if err := service.config.Validate(true, false); err != nil {
		return "", err
	}

	return service.config.Project, nil
}

// Projects lists the projects of the organization.
func (service *Service) Projects(ctx context.Context, top int) ([]Project, error) {
	clients, err := service.area(ctx)

	if err != nil {
		return nil, err
	}

	var (
		projects []Project
		args     = core.GetProjectsArgs{}
	)

	if top > 0 {
		args.Top = &top
	}

	for {
		page, err := clients.Core.GetProjects(ctx, args)

		if err != nil {
			return nil, fmt.Errorf("failed to list projects: %w", err)
		}

		if page == nil {
			break
		}

		for _, p := range page.Value {
			project := Project{
				Name:        SafeString(p.Name),
				Description: SafeString(p.Description),
				URL:         SafeString(p.Url),
			}

			if p.Id != nil {
				project.ID = p.Id.String()
			}

			if p.State != nil {
				project.State = string(*p.State)
			}

			projects = append(projects, project)
		}

		if top > 0 && len(projects) >= top {
			return projects[:top], nil
		}

		next, err := strconv.Atoi(page.ContinuationToken)

		if err != nil || page.ContinuationToken == "" {
			break
		}

		args.ContinuationToken = &next
	}

	return projects, nil
}

/*
ExecuteWiql runs a WIQL query and loads the matching work items, at most top
of them.
*/
func (service *Service) ExecuteWiql(ctx context.Context, project, query string, top int) ([]WorkItem, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}

	project, err := service.project(project)

	if err != nil {
		return nil, err
	}

	clients, err := service.area(ctx)

	if err != nil {
		return nil, err
	}

	if top <= 0 {
		top = DefaultWiqlTop
	}

	top = min(top, MaxWiqlTop)

	result, err := clients.Tracking.QueryByWiql(ctx, workitemtracking.QueryByWiqlArgs{
		Wiql:    &workitemtracking.Wiql{Query: &query},
		Project: &project,
		Top:     &top,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to execute WIQL query: %w", err)
	}

	var ids []int

	if result != nil && result.WorkItems != nil {
		for _, ref := range *result.WorkItems {
			if ref.Id != nil {
				ids = append(ids, *ref.Id)
			}
		}
	}

	if len(ids) > top {
		ids = ids[:top]
	}

	return service.WorkItems(ctx, project, ids)
}

/*
WorkItems loads work items by id in batches, keeping the order of ids. Ids the
API does not return are skipped.
*/
func (service *Service) WorkItems(ctx context.Context, project string, ids []int) ([]WorkItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	clients, err := service.area(ctx)

	if err != nil {
		return nil, err
	}

	project = strings.TrimSpace(project)
	byID := make(map[int]WorkItem, len(ids))

	for start := 0; start < len(ids); start += BatchSize {
		batch := ids[start:min(start+BatchSize, len(ids))]
		args := workitemtracking.GetWorkItemsArgs{Ids: &batch}

		if project != "" {
			args.Project = &project
		}

		items, err := clients.Tracking.GetWorkItems(ctx, args)

		if err != nil {
			return nil, fmt.Errorf("failed to get work items: %w", err)
		}

		if items == nil {
			continue
		}

		for _, wi := range *items {
			item := convertWorkItem(wi)
			byID[item.ID] = item
		}
	}

	out := make([]WorkItem, 0, len(ids))

	for _, id := range ids {
		if item, ok := byID[id]; ok {
			out = append(out, item)
		}
	}

	return out, nil
}

// Comments returns the discussion of a work item as plain text, oldest first.
func (service *Service) Comments(ctx context.Context, project string, id, top int) ([]Comment, error) {
	project, err := service.project(project)

	if err != nil {
		return nil, err
	}

	clients, err := service.area(ctx)

	if err != nil {
		return nil, err
	}

	args := workitemtracking.GetCommentsArgs{Project: &project, WorkItemId: &id}

	if top > 0 {
		args.Top = &top
	}

	list, err := clients.Tracking.GetComments(ctx, args)

	if err != nil {
		return nil, fmt.Errorf("failed to get comments of work item %d: %w", id, err)
	}

	if list == nil || list.Comments == nil {
		return nil, nil
	}

	var comments []Comment

	for _, c := range *list.Comments {
		comment := Comment{Text: strings.Join(format.PlainLines(SafeString(c.Text)), "\n")}

		if c.Id != nil {
			comment.ID = *c.Id
		}

		if c.CreatedBy != nil {
			comment.Author = SafeString(c.CreatedBy.DisplayName)
		}

		if c.CreatedDate != nil {
			comment.Created = c.CreatedDate.Time.Format("2006-01-02 15:04")
		}

		comments = append(comments, comment)
	}

	sort.SliceStable(comments, func(i, j int) bool { return comments[i].Created < comments[j].Created })

	return comments, nil
}

/*
SprintOverview summarizes an iteration: the current one of the team when
identifier is empty, otherwise the iteration whose id, name or path matches.
*/
func (service *Service) SprintOverview(ctx context.Context, project, team, identifier string) (*SprintOverview, error) {
	if team = strings.TrimSpace(team); team == "" {
		if err := service.config.Validate(false, true); err != nil {
			return nil, err
		}

		team = service.config.Team
	}

	project, err := service.project(project)

	if err != nil {
		return nil, err
	}

	clients, err := service.area(ctx)

	if err != nil {
		return nil, err
	}

	iteration, err := resolveIteration(ctx, clients.Work, project, team, identifier)

	if err != nil {
		return nil, err
	}

	sprint := sprintOutput(iteration)

	query := fmt.Sprintf(
		"SELECT [System.Id] FROM WorkItems WHERE [System.TeamProject] = '%s' AND [System.IterationPath] = '%s' ORDER BY [System.Id]",
		quote(project), quote(sprint.IterationPath),
	)

	items, err := service.ExecuteWiql(ctx, project, query, MaxWiqlTop)

	if err != nil {
		return nil, err
	}

	overview := &SprintOverview{
		Sprint:  sprint,
		Total:   len(items),
		ByState: map[string]int{},
		ByType:  map[string]int{},
		Items:   items,
	}

	for _, item := range items {
		overview.ByState[orUnknown(item.State)]++
		overview.ByType[orUnknown(item.Type)]++
	}

	log.Debug("sprint overview", "sprint", sprint.Name, "items", overview.Total)

	return overview, nil
}

func resolveIteration(
	ctx context.Context, client WorkClient, project, team, identifier string,
) (work.TeamSettingsIteration, error) {
	args := work.GetTeamIterationsArgs{Project: &project, Team: &team}

	if identifier = strings.TrimSpace(identifier); identifier == "" {
		current := "current"
		args.Timeframe = &current
	}

	iterations, err := client.GetTeamIterations(ctx, args)

	if err != nil {
		return work.TeamSettingsIteration{}, fmt.Errorf("failed to get iterations: %w", err)
	}

	if iterations == nil || len(*iterations) == 0 {
		return work.TeamSettingsIteration{}, fmt.Errorf("no sprints found for team %s", team)
	}

	if identifier == "" {
		return (*iterations)[0], nil
	}

	for _, it := range *iterations {
		if it.Id != nil && strings.EqualFold(it.Id.String(), identifier) {
			return it, nil
		}

		if strings.EqualFold(SafeString(it.Name), identifier) || strings.EqualFold(SafeString(it.Path), identifier) {
			return it, nil
		}
	}

	return work.TeamSettingsIteration{}, fmt.Errorf("sprint %q not found for team %s", identifier, team)
}

func sprintOutput(iteration work.TeamSettingsIteration) SprintOutput {
	sprint := SprintOutput{
		Name:          SafeString(iteration.Name),
		IterationPath: SafeString(iteration.Path),
		URL:           SafeString(iteration.Url),
	}

	if iteration.Id != nil {
		sprint.ID = iteration.Id.String()
	}

	if iteration.Attributes != nil {
		if iteration.Attributes.StartDate != nil {
			sprint.StartDate = iteration.Attributes.StartDate.Time.Format("2006-01-02")
		}
		if iteration.Attributes.FinishDate != nil {
			sprint.EndDate = iteration.Attributes.FinishDate.Time.Format("2006-01-02")
		}
		if iteration.Attributes.TimeFrame != nil {
			sprint.TimeFrame = string(*iteration.Attributes.TimeFrame)
		}
	}

	return sprint
}

func convertWorkItem(wi workitemtracking.WorkItem) WorkItem {
	item := WorkItem{URL: SafeString(wi.Url)}

	if wi.Id != nil {
		item.ID = *wi.Id
	}

	if wi.Rev != nil {
		item.Rev = *wi.Rev
	}

	if wi.Fields != nil {
		fields := *wi.Fields
		item.Fields = fields
		item.Title = FieldString(fields, "System.Title")
		item.Type = FieldString(fields, "System.WorkItemType")
		item.State = FieldString(fields, "System.State")
		item.AssignedTo = FieldString(fields, "System.AssignedTo")
		item.IterationPath = FieldString(fields, "System.IterationPath")
	}

	return item
}

/*
FieldString renders a work item field. Identity fields arrive as objects and
are reduced to their display name.
*/
func FieldString(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any:
		if name, ok := v["displayName"].(string); ok {
			return name
		}

		if name, ok := v["uniqueName"].(string); ok {
			return name
		}
	}

	return fmt.Sprint(fields[key])
}

// SafeString dereferences optional API strings.
func SafeString(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

func quote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func orUnknown(s string) string {
	if s == "" {
		return "(none)"
	}

	return s
}
