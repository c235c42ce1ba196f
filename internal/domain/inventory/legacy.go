package inventory

import (
	"context"
	"fmt"

	"barstock/internal/domain/catalog"
)

// Movements written before consumption carried source_event_id can only be
// recognised by the reason text they were written with. Everything that
// depends on that convention lives in this file; remove it once historical
// rows have been back-filled.

// legacyConsumeReasons lists every reason string older consume calls used for ev.
func legacyConsumeReasons(ev catalog.Event) []string {
	idStr := ev.ID.String()
	reasons := make([]string, 0, 4)
	if ev.Name != "" {
		reasons = append(reasons,
			fmt.Sprintf("Event consumed: %s (%s)", ev.Name, idStr),
			fmt.Sprintf("Event consumed: %s", ev.Name),
		)
	}
	return append(reasons, fmt.Sprintf("Event consumed: %s", idStr), idStr)
}

// findLegacyConsumption returns untagged consume movements for ev that are still active.
func (s *Service) findLegacyConsumption(ctx context.Context, ev catalog.Event, location *Location) ([]Movement, error) {
	movements, err := s.repo.UntaggedEventMovements(ctx, legacyConsumeReasons(ev), sourceTypeLegacyEvent, location)
	if err != nil {
		return nil, fmt.Errorf("find legacy consumption: %w", err)
	}
	return movements, nil
}
