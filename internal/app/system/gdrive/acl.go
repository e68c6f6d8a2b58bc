package gdrive

import (
	"context"
	"fmt"

	"github.com/one-zero-eight/guard/internal/app/system/metrics"
	"github.com/one-zero-eight/guard/internal/domain/models"
	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
)

// Permission grantee types, per the provider's ACL model.
const (
	granteeUser   = "user"
	granteeGroup  = "group"
	granteeDomain = "domain"
	granteeAnyone = "anyone"
)

const permissionFields = "permissions(id,type,role,emailAddress,pendingOwner)"

// Grant creates a user permission for email on the file and returns the
// permission id. Provider notifications are suppressed: the join link is the
// only channel users hear from.
func (c *Client) Grant(ctx context.Context, fileID string, role models.Role, email string) (string, error) {
	perm := &drive.Permission{
		Type:         granteeUser,
		Role:         string(role),
		EmailAddress: email,
	}
	created, err := c.drive.Permissions.Create(fileID, perm).
		SendNotificationEmail(false).
		Fields("id").
		Context(ctx).Do()
	if err != nil {
		metrics.ProviderErrors.WithLabelValues("grant").Inc()
		return "", translateGrantErr(err, email)
	}
	metrics.GrantsCreated.Inc()
	return created.Id, nil
}

// Revoke deletes a permission. Callers treat a failure here as best-effort:
// local state is authoritative and stale provider access is repaired by the
// cleanup pass.
func (c *Client) Revoke(ctx context.Context, fileID, grantID string) error {
	if err := c.drive.Permissions.Delete(fileID, grantID).Context(ctx).Do(); err != nil {
		metrics.ProviderErrors.WithLabelValues("revoke").Inc()
		return providerErr("revoke", err)
	}
	metrics.GrantsRevoked.Inc()
	return nil
}

// UpdateRole changes the role on an existing permission.
func (c *Client) UpdateRole(ctx context.Context, fileID, grantID string, role models.Role) error {
	_, err := c.drive.Permissions.Update(fileID, grantID, &drive.Permission{Role: string(role)}).
		Context(ctx).Do()
	if err != nil {
		metrics.ProviderErrors.WithLabelValues("update_role").Inc()
		return providerErr("update role", err)
	}
	return nil
}

// ListUserGrants enumerates user-type permissions on the file, keyed by
// email address. Used for drift detection and cleanup.
func (c *Client) ListUserGrants(ctx context.Context, fileID string) (map[string]string, error) {
	grants := make(map[string]string)
	err := c.eachPermission(ctx, fileID, func(p *drive.Permission) {
		if p.Type == granteeUser && p.EmailAddress != "" {
			grants[p.EmailAddress] = p.Id
		}
	})
	if err != nil {
		return nil, err
	}
	return grants, nil
}

// CountUserGrants returns the number of user-type permissions on the file.
func (c *Client) CountUserGrants(ctx context.Context, fileID string) (int, error) {
	n := 0
	err := c.eachPermission(ctx, fileID, func(p *drive.Permission) {
		if p.Type == granteeUser {
			n++
		}
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// AcceptPendingOwnership scans the file's permissions for an ownership
// invitation addressed to the service account and promotes it to full
// ownership. Returns false when no invitation exists; the transfer must have
// been initiated out-of-band by the current owner.
func (c *Client) AcceptPendingOwnership(ctx context.Context, fileID string) (bool, error) {
	var pendingID string
	err := c.eachPermission(ctx, fileID, func(p *drive.Permission) {
		if p.PendingOwner && p.EmailAddress == c.email {
			pendingID = p.Id
		}
	})
	if err != nil {
		return false, err
	}
	if pendingID == "" {
		return false, nil
	}

	_, err = c.drive.Permissions.Update(fileID, pendingID, &drive.Permission{Role: "owner"}).
		TransferOwnership(true).
		Context(ctx).Do()
	if err != nil {
		metrics.ProviderErrors.WithLabelValues("accept_ownership").Inc()
		return false, providerErr("accept ownership", err)
	}
	c.log.Info("accepted pending ownership", zap.String("file_id", fileID))
	return true, nil
}

// StripPublicSharingAndLock removes any "anyone" or whole-domain permission
// inherited from the file's life outside the system, then disables
// re-sharing by non-owner writers. Returns the number of broad permissions
// removed.
func (c *Client) StripPublicSharingAndLock(ctx context.Context, fileID string) (int, error) {
	var broad []string
	err := c.eachPermission(ctx, fileID, func(p *drive.Permission) {
		if p.Type == granteeAnyone || p.Type == granteeDomain {
			broad = append(broad, p.Id)
		}
	})
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, id := range broad {
		if err := c.drive.Permissions.Delete(fileID, id).Context(ctx).Do(); err != nil {
			return removed, providerErr("strip sharing", err)
		}
		removed++
	}

	lock := &drive.File{
		WritersCanShare:              false,
		CopyRequiresWriterPermission: true,
		ForceSendFields:              []string{"WritersCanShare"},
	}
	if _, err := c.drive.Files.Update(fileID, lock).Context(ctx).Do(); err != nil {
		return removed, providerErr("lock sharing", err)
	}
	if removed > 0 {
		c.log.Info("stripped broad sharing",
			zap.String("file_id", fileID),
			zap.Int("removed", removed))
	}
	return removed, nil
}

// HasServiceAccess reports whether the service account itself holds a
// permission on the file. Registration of an existing file requires the
// owner to have shared it with the service account first.
func (c *Client) HasServiceAccess(ctx context.Context, fileID string) (bool, error) {
	found := false
	err := c.eachPermission(ctx, fileID, func(p *drive.Permission) {
		if p.EmailAddress == c.email {
			found = true
		}
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (c *Client) eachPermission(ctx context.Context, fileID string, fn func(*drive.Permission)) error {
	call := c.drive.Permissions.List(fileID).Fields(permissionFields, "nextPageToken")
	pageToken := ""
	for {
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Context(ctx).Do()
		if err != nil {
			metrics.ProviderErrors.WithLabelValues("list_permissions").Inc()
			return providerErr(fmt.Sprintf("list permissions for %s", fileID), err)
		}
		for _, p := range list.Permissions {
			fn(p)
		}
		if list.NextPageToken == "" {
			return nil
		}
		pageToken = list.NextPageToken
	}
}
