package remote

import (
	"context"
	"fmt"

	kerrors "github.com/PolarWolf314/secretsync/internal/errors"
	"github.com/PolarWolf314/secretsync/internal/graphql"
)

const generalProjectsQuery = `query GeneralProjects {
  generalProjects {
    list {
      id
      title
      member
      environments {
        list { id title }
      }
    }
  }
}`

type generalProjectsResponse struct {
	GeneralProjects struct {
		List []struct {
			ID           string `json:"id"`
			Title        string `json:"title"`
			Member       bool   `json:"member"`
			Environments struct {
				List []Environment `json:"list"`
			} `json:"environments"`
		} `json:"list"`
	} `json:"generalProjects"`
}

func (s *Store) catalog(ctx context.Context) ([]Project, error) {
	var resp generalProjectsResponse
	if err := s.client.Do(ctx, generalProjectsQuery, nil, &resp); err != nil {
		if graphql.IsUnauthorized(err) {
			return nil, fmt.Errorf("%w: session cannot list projects", kerrors.ErrPermissionDenied)
		}
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	projects := make([]Project, 0, len(resp.GeneralProjects.List))
	for _, p := range resp.GeneralProjects.List {
		projects = append(projects, Project{
			ID:           p.ID,
			Name:         p.Title,
			Member:       p.Member,
			Environments: p.Environments.List,
		})
	}
	return projects, nil
}

// Projects lists the projects the session's user is a member of.
func (s *Store) Projects(ctx context.Context) ([]Project, error) {
	all, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}

	projects := make([]Project, 0, len(all))
	for _, p := range all {
		if p.Member {
			projects = append(projects, p)
		}
	}
	return projects, nil
}

// ResolveEnvironment looks up an environment by project and environment
// name. Names match case-insensitively.
func (s *Store) ResolveEnvironment(ctx context.Context, project, environment string) (EnvironmentRef, error) {
	all, err := s.catalog(ctx)
	if err != nil {
		return EnvironmentRef{}, err
	}

	for _, p := range all {
		if !sameName(p.Name, project) {
			continue
		}
		if !p.Member {
			return EnvironmentRef{}, fmt.Errorf("%w: you are not a member of project %q", kerrors.ErrPermissionDenied, p.Name)
		}
		for _, e := range p.Environments {
			if sameName(e.Name, environment) {
				s.log.Debugf("Resolved %s/%s to environment %s", p.Name, e.Name, e.ID)
				return EnvironmentRef{ID: e.ID, Name: e.Name, Project: p.Name}, nil
			}
		}
		return EnvironmentRef{}, fmt.Errorf("%w: %q in project %q", kerrors.ErrEnvironmentNotFound, environment, p.Name)
	}

	return EnvironmentRef{}, fmt.Errorf("%w: %q", kerrors.ErrProjectNotFound, project)
}
