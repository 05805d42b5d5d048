package compliance_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisinsight/aegis/compliance"
	"github.com/aegisinsight/aegis/intel"
	"github.com/aegisinsight/aegis/store"
)

func TestFrameworkByID(t *testing.T) {
	fw, ok := compliance.FrameworkByID("nist-ai-rmf")
	require.True(t, ok)
	assert.Equal(t, "NIST AI RMF", fw.Name)
	assert.Len(t, fw.Controls, 8)

	_, ok = compliance.FrameworkByID("pci-dss")
	assert.False(t, ok)
}

func TestService_Attest_CompliantRecordsAttestor(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := compliance.NewService(st, nil)

	control, err := svc.Attest(ctx, compliance.Attestation{
		OrgID:      "org-1",
		Framework:  "soc2",
		ControlRef: "CC1",
		Status:     store.ControlStatusCompliant,
		Attestor:   "alex",
		Notes:      "Reviewed Q3 controls.",
	})
	require.NoError(t, err)

	assert.Equal(t, "Control environment", control.Title)
	assert.Equal(t, "alex", control.Attestor)
	require.NotNil(t, control.AttestedAt)

	stored, err := st.GetControl(ctx, "org-1", "soc2", "CC1")
	require.NoError(t, err)
	assert.Equal(t, store.ControlStatusCompliant, stored.Status)
	assert.Equal(t, "Reviewed Q3 controls.", stored.Notes)
}

func TestService_Attest_NonCompliantOmitsAttestor(t *testing.T) {
	svc := compliance.NewService(store.NewMemoryStore(), nil)

	control, err := svc.Attest(context.Background(), compliance.Attestation{
		OrgID:      "org-1",
		Framework:  "gdpr",
		ControlRef: "ART-32",
		Status:     store.ControlStatusNonCompliant,
		Attestor:   "alex",
	})
	require.NoError(t, err)
	assert.Empty(t, control.Attestor)
	assert.Nil(t, control.AttestedAt)
}

func TestService_Attest_Reattest_Overwrites(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := compliance.NewService(st, nil)

	_, err := svc.Attest(ctx, compliance.Attestation{
		OrgID: "org-1", Framework: "soc2", ControlRef: "CC3",
		Status: store.ControlStatusNonCompliant,
	})
	require.NoError(t, err)

	_, err = svc.Attest(ctx, compliance.Attestation{
		OrgID: "org-1", Framework: "soc2", ControlRef: "CC3",
		Status: store.ControlStatusCompliant, Attestor: "sam",
	})
	require.NoError(t, err)

	controls, err := st.ListControlsByFramework(ctx, "org-1", "soc2")
	require.NoError(t, err)
	require.Len(t, controls, 1)
	assert.Equal(t, store.ControlStatusCompliant, controls[0].Status)
}

func TestService_Attest_Rejections(t *testing.T) {
	svc := compliance.NewService(store.NewMemoryStore(), nil)
	ctx := context.Background()

	cases := []compliance.Attestation{
		{OrgID: "org-1", Framework: "unknown", ControlRef: "CC1", Status: store.ControlStatusCompliant},
		{OrgID: "org-1", Framework: "soc2", ControlRef: "CC99", Status: store.ControlStatusCompliant},
		{OrgID: "org-1", Framework: "soc2", ControlRef: "CC1", Status: "approved"},
	}
	for _, att := range cases {
		_, err := svc.Attest(ctx, att)
		require.Error(t, err)
		var valErr *intel.ValidationError
		assert.ErrorAs(t, err, &valErr)
	}
}

func TestService_Stats(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	svc := compliance.NewService(st, nil)

	_, err := svc.Attest(ctx, compliance.Attestation{
		OrgID: "org-1", Framework: "soc2", ControlRef: "CC1",
		Status: store.ControlStatusCompliant, Attestor: "alex",
	})
	require.NoError(t, err)
	_, err = svc.Attest(ctx, compliance.Attestation{
		OrgID: "org-1", Framework: "soc2", ControlRef: "CC2",
		Status: store.ControlStatusNotApplicable,
	})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, stats, len(compliance.Frameworks))

	byID := make(map[string]compliance.FrameworkStats)
	for _, fs := range stats {
		byID[fs.Framework] = fs
	}

	soc2 := byID["soc2"]
	assert.Equal(t, 6, soc2.Total)
	assert.Equal(t, 1, soc2.Compliant)
	assert.Equal(t, 1, soc2.NotApplicable)
	assert.Equal(t, 0, soc2.NonCompliant)

	// Frameworks with no attestations still show their catalog size.
	assert.Equal(t, 8, byID["nist-ai-rmf"].Total)
	assert.Equal(t, 0, byID["nist-ai-rmf"].Compliant)
}
