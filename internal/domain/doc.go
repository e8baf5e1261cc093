// Package domain models cosmic-ray neutron monitor time series and the pure
// transform stages of the network-averaging pipeline.
//
// # Data Source
//
// Ground-based neutron monitors count secondary cosmic-ray neutrons, a
// signal used by cosmic-ray neutron sensing (CRNS) to infer soil moisture.
// Three archive networks are supported, each with its own file and field
// conventions (see the network package): COSMOS-UK (moderated counts with
// per-sample QC flags, pressure and humidity), COSMOS-US (moderated and
// unmoderated counts with pressure), and NMDB (pre-corrected counts only).
//
// # Correction Model
//
// Raw counts vary with atmospheric conditions, not just incoming flux.
// Pressure correction follows the Desilets & Zreda 2003 attenuation-length
// model: each sample is scaled by exp((P - P0) * beta(P0, Rc)), where P0 is
// the series mean pressure, Rc the station cutoff rigidity in GV, and beta
// a nine-term polynomial in rigidity and atmospheric depth (P0 * 0.981
// g cm^-2). Mean-centering makes the factor exactly 1 for flat pressure.
// Humidity correction is the linear factor 1 + 0.0054*(H - mean(H));
// networks without a humidity field use a unit factor.
//
// # Quality Control
//
// COSMOS-UK publishes per-field QC flag columns; any sample whose flag is
// positive is masked to NaN. All networks then pass through percentile
// outlier removal (default band 1st-97th) with linear gap interpolation;
// gaps at the series boundary clamp to the nearest valid sample.
//
// # Averaging and Errors
//
// Corrected, aligned station series are stacked into a per-field Ensemble.
// The cross-station sum, the per-timestamp live-station count, the
// ensemble mean and the Poisson percentage error sqrt(sum)/sum*100 are
// derived in one pass. The averaged series is finally rebased to the mean
// of its first 48 samples and reported as a percentage deviation.
package domain
